package ai

import (
	"context"
	"errors"
	"testing"
)

const sampleResume = `Jane Smith
jane.smith@example.com
Senior backend engineer with 8 years of Go and PostgreSQL experience.
Built RabbitMQ-based event pipelines and Kubernetes deployments.`

func sampleRequest() AnalyzeRequest {
	return AnalyzeRequest{
		ResumeText: sampleResume,
		Job: JobContext{
			Title:        "Backend Engineer",
			Description:  "Build backend services",
			Requirements: []string{"Go", "PostgreSQL", "Rust"},
		},
	}
}

func TestMockParseDocument(t *testing.T) {
	p := NewMockProvider(0)

	doc, err := p.ParseDocument(context.Background(), []byte(sampleResume), "resume.txt", "text/plain")
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.Text == "" {
		t.Error("expected extracted text")
	}
	if doc.PageCount < 1 {
		t.Errorf("PageCount = %d, want >= 1", doc.PageCount)
	}
	if doc.Confidence <= 0 || doc.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0,1]", doc.Confidence)
	}
}

func TestMockParseDocumentErrors(t *testing.T) {
	p := NewMockProvider(0)

	// Empty document
	if _, err := p.ParseDocument(context.Background(), nil, "empty.txt", "text/plain"); err == nil {
		t.Error("expected error for empty document")
	}

	// Invalid UTF-8
	_, err := p.ParseDocument(context.Background(), []byte{0xff, 0xfe, 0x00}, "bad.pdf", "application/pdf")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.FileName != "bad.pdf" {
		t.Errorf("ParseError.FileName = %q, want bad.pdf", parseErr.FileName)
	}
}

func TestMockAnalyzeDeterministic(t *testing.T) {
	p := NewMockProvider(42)

	a1, err := p.AnalyzeResume(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("AnalyzeResume failed: %v", err)
	}
	a2, err := p.AnalyzeResume(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("AnalyzeResume failed: %v", err)
	}

	if a1.OverallScore != a2.OverallScore {
		t.Errorf("overall score not deterministic: %d vs %d", a1.OverallScore, a2.OverallScore)
	}
	if a1.Dimensions != a2.Dimensions {
		t.Errorf("dimensions not deterministic: %+v vs %+v", a1.Dimensions, a2.Dimensions)
	}
}

func TestMockAnalyzeExtractsCandidate(t *testing.T) {
	p := NewMockProvider(0)

	a, err := p.AnalyzeResume(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("AnalyzeResume failed: %v", err)
	}

	if a.Candidate.Email != "jane.smith@example.com" {
		t.Errorf("Email = %q, want jane.smith@example.com", a.Candidate.Email)
	}
	if a.Candidate.FirstName != "Jane" || a.Candidate.LastName != "Smith" {
		t.Errorf("name = %q %q, want Jane Smith", a.Candidate.FirstName, a.Candidate.LastName)
	}
}

func TestMockAnalyzeScoresRequirementCoverage(t *testing.T) {
	p := NewMockProvider(0)

	a, err := p.AnalyzeResume(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("AnalyzeResume failed: %v", err)
	}

	// Resume mentions Go and PostgreSQL but not Rust.
	if len(a.MatchedSkills) != 2 {
		t.Errorf("MatchedSkills = %v, want 2 entries", a.MatchedSkills)
	}
	if len(a.MissingSkills) != 1 || a.MissingSkills[0] != "Rust" {
		t.Errorf("MissingSkills = %v, want [Rust]", a.MissingSkills)
	}

	if a.OverallScore < 0 || a.OverallScore > 100 {
		t.Errorf("OverallScore = %d, want in [0,100]", a.OverallScore)
	}
	for _, s := range []int{a.Dimensions.Skills, a.Dimensions.Experience, a.Dimensions.Education, a.Dimensions.Certifications, a.Dimensions.OverallFit} {
		if s < 0 || s > 100 {
			t.Errorf("dimension score %d out of range", s)
		}
	}
	if a.ModelVersion == "" {
		t.Error("expected model version")
	}
}

func TestMockAnalyzeEmptyText(t *testing.T) {
	p := NewMockProvider(0)

	req := sampleRequest()
	req.ResumeText = "   "
	_, err := p.AnalyzeResume(context.Background(), req)
	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected AnalysisError, got %v", err)
	}
}

func TestMockHintFillsMissingFields(t *testing.T) {
	p := NewMockProvider(0)

	req := sampleRequest()
	req.ResumeText = "experienced engineer with Go and PostgreSQL background"
	req.ParsedHint = &CandidateData{FirstName: "Ada", LastName: "Lovelace", Email: "ada@history.org"}

	a, err := p.AnalyzeResume(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeResume failed: %v", err)
	}
	if a.Candidate.FirstName != "Ada" || a.Candidate.Email != "ada@history.org" {
		t.Errorf("hint not applied: %+v", a.Candidate)
	}
}
