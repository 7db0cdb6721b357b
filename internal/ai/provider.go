// Package ai defines the provider contract for document parsing and
// resume-vs-job analysis, with a deterministic mock and a Gemini-backed
// production implementation.
package ai

import (
	"context"
	"fmt"
	"time"
)

// Health statuses reported by HealthCheck.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthError    = "error"
)

// RubricVersion identifies the scoring rubric stamped on every analysis.
const RubricVersion = "v1"

// ParsedDocument is the normalized output of document extraction.
type ParsedDocument struct {
	Text       string            `json:"text"`
	PageCount  int               `json:"page_count"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// JobContext is the job-side input to an analysis.
type JobContext struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Requirements   []string `json:"requirements"`
	Department     string   `json:"department,omitempty"`
	Location       string   `json:"location,omitempty"`
	EmploymentType string   `json:"employment_type,omitempty"`
}

// CandidateData is the contact and background information extracted from a
// resume.
type CandidateData struct {
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	Location       string   `json:"location,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Education      []string `json:"education,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Summary        string   `json:"summary,omitempty"`
}

// DimensionScores are the per-dimension integer scores, each in [0,100].
type DimensionScores struct {
	Skills         int `json:"skills"`
	Experience     int `json:"experience"`
	Education      int `json:"education"`
	Certifications int `json:"certifications"`
	OverallFit     int `json:"overall_fit"`
}

// AnalyzeRequest carries the inputs for a resume-vs-job analysis.
type AnalyzeRequest struct {
	ResumeText string
	Job        JobContext
	// ParsedHint carries candidate data from an earlier extraction pass,
	// when available.
	ParsedHint *CandidateData
}

// Analysis is the structured result of a resume-vs-job analysis. All scores
// are clamped to [0,100] integers and confidence to [0,1] by the provider
// before it returns.
type Analysis struct {
	Candidate      CandidateData   `json:"candidate"`
	OverallScore   int             `json:"overall_score"`
	Confidence     float64         `json:"confidence"`
	Dimensions     DimensionScores `json:"dimensions"`
	Summary        string          `json:"summary"`
	MatchedSkills  []string        `json:"matched_skills"`
	MissingSkills  []string        `json:"missing_skills"`
	Highlights     []string        `json:"highlights"`
	Concerns       []string        `json:"concerns"`
	ModelVersion   string          `json:"model_version"`
	ProcessingTime time.Duration   `json:"-"`
}

// HealthStatus reports provider availability.
type HealthStatus struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Provider is the pluggable AI capability behind the pipeline.
type Provider interface {
	// ParseDocument extracts normalized text from an uploaded document.
	ParseDocument(ctx context.Context, data []byte, fileName, mimeType string) (*ParsedDocument, error)
	// AnalyzeResume scores resume text against a job.
	AnalyzeResume(ctx context.Context, req AnalyzeRequest) (*Analysis, error)
	// HealthCheck reports whether the provider can serve requests.
	HealthCheck(ctx context.Context) HealthStatus
}

// Config selects and configures a provider implementation.
type Config struct {
	Provider string // "mock" or "gemini"
	APIKey   string
	Model    string // Gemini model name; empty uses the default
}

// NewProvider creates a provider based on configuration. Selection happens
// once at process start; there is no runtime hot-swapping.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockProvider(0), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.Provider)
	}
}

// ParseError indicates document extraction failed. Malformed-input parse
// failures must not be retried by callers; transient upstream failures are
// left to the queue's retry policy.
type ParseError struct {
	FileName string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse document %s: %v", e.FileName, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// AnalysisError indicates the upstream analysis call failed.
type AnalysisError struct {
	Cause error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("resume analysis failed: %v", e.Cause)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}
