package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const mockModelVersion = "mock-1.0"

// charsPerPage approximates page count from extracted text length.
const charsPerPage = 2800

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// MockProvider is a fully deterministic Provider for local development and
// tests. All outputs are derived from the input bytes; the per-call RNG is
// seeded from an input hash plus the configured seed. It never performs
// network I/O.
type MockProvider struct {
	seed int64
}

// NewMockProvider creates a mock provider. Two providers with the same seed
// produce identical outputs for identical inputs.
func NewMockProvider(seed int64) *MockProvider {
	return &MockProvider{seed: seed}
}

// ParseDocument treats the document bytes as text. Invalid UTF-8 is a
// malformed-input parse failure.
func (p *MockProvider) ParseDocument(_ context.Context, data []byte, fileName, mimeType string) (*ParsedDocument, error) {
	if len(data) == 0 {
		return nil, &ParseError{FileName: fileName, Cause: fmt.Errorf("empty document")}
	}
	if !utf8.Valid(data) {
		return nil, &ParseError{FileName: fileName, Cause: fmt.Errorf("document is not valid UTF-8 text")}
	}

	text := strings.TrimSpace(string(data))
	return &ParsedDocument{
		Text:       text,
		PageCount:  len(text)/charsPerPage + 1,
		Confidence: 0.95,
		Metadata: map[string]string{
			"parser":    "mock",
			"mime_type": mimeType,
		},
	}, nil
}

// AnalyzeResume derives candidate data and scores from the resume text and
// job context alone.
func (p *MockProvider) AnalyzeResume(_ context.Context, req AnalyzeRequest) (*Analysis, error) {
	start := time.Now()
	if strings.TrimSpace(req.ResumeText) == "" {
		return nil, &AnalysisError{Cause: fmt.Errorf("resume text is empty")}
	}

	rng := rand.New(rand.NewSource(p.seed + int64(hashInput(req.ResumeText+req.Job.Title))))

	candidate := extractCandidate(req.ResumeText)
	if req.ParsedHint != nil {
		candidate = mergeHint(candidate, *req.ParsedHint)
	}

	matched, missing := matchRequirements(req.ResumeText, req.Job.Requirements)

	// Skills score tracks requirement coverage; the other dimensions jitter
	// around it deterministically.
	skillsScore := 50
	if total := len(matched) + len(missing); total > 0 {
		skillsScore = 100 * len(matched) / total
	}
	dims := DimensionScores{
		Skills:         skillsScore,
		Experience:     jitter(rng, skillsScore, 15),
		Education:      jitter(rng, skillsScore, 20),
		Certifications: jitter(rng, skillsScore, 25),
		OverallFit:     jitter(rng, skillsScore, 10),
	}
	overall := (dims.Skills*2 + dims.Experience*2 + dims.Education + dims.Certifications + dims.OverallFit*2) / 8

	a := &Analysis{
		Candidate:     candidate,
		OverallScore:  overall,
		Confidence:    0.9,
		Dimensions:    dims,
		Summary:       fmt.Sprintf("Matched %d of %d requirements for %s.", len(matched), len(matched)+len(missing), req.Job.Title),
		MatchedSkills: matched,
		MissingSkills: missing,
		ModelVersion:  mockModelVersion,
	}
	if overall >= 70 {
		a.Highlights = []string{"strong requirement coverage"}
	}
	if len(missing) > 0 {
		a.Concerns = []string{fmt.Sprintf("missing %d required skills", len(missing))}
	}
	a.ProcessingTime = time.Since(start)
	return a, nil
}

// HealthCheck always reports ok; the mock has no upstream dependency.
func (p *MockProvider) HealthCheck(_ context.Context) HealthStatus {
	return HealthStatus{Status: HealthOK, Details: "mock provider"}
}

func hashInput(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// jitter shifts base by a deterministic offset in [-spread, spread], clamped
// to [0,100].
func jitter(rng *rand.Rand, base, spread int) int {
	v := base + rng.Intn(2*spread+1) - spread
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// extractCandidate pulls contact details out of resume text with simple
// heuristics: email by pattern, name from the first non-empty line.
func extractCandidate(text string) CandidateData {
	var c CandidateData
	c.Email = emailPattern.FindString(text)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		if len(words) >= 2 && len(words) <= 4 && !strings.ContainsAny(line, "@0123456789") {
			c.FirstName = words[0]
			c.LastName = words[len(words)-1]
		}
		break
	}
	return c
}

func mergeHint(base CandidateData, hint CandidateData) CandidateData {
	if base.FirstName == "" {
		base.FirstName = hint.FirstName
	}
	if base.LastName == "" {
		base.LastName = hint.LastName
	}
	if base.Email == "" {
		base.Email = hint.Email
	}
	if base.Phone == "" {
		base.Phone = hint.Phone
	}
	if base.Location == "" {
		base.Location = hint.Location
	}
	if len(base.Skills) == 0 {
		base.Skills = hint.Skills
	}
	return base
}

// matchRequirements splits job requirements into those mentioned in the
// resume text (case-insensitive substring match) and those absent.
func matchRequirements(resumeText string, requirements []string) (matched, missing []string) {
	lower := strings.ToLower(resumeText)
	for _, req := range requirements {
		req = strings.TrimSpace(req)
		if req == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(req)) {
			matched = append(matched, req)
		} else {
			missing = append(missing, req)
		}
	}
	return matched, missing
}
