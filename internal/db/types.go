package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resume processing statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Feature types. Standard features are always enabled regardless of
// tenant overrides.
const (
	FeatureTypeStandard   = "standard"
	FeatureTypeFreemium   = "freemium"
	FeatureTypePremium    = "premium"
	FeatureTypeAddon      = "addon"
	FeatureTypeEnterprise = "enterprise"
)

// ApplicationStatusNew is the status assigned to pipeline-created applications.
const ApplicationStatusNew = "new"

// CandidateSourceResumeUpload marks candidates materialized from an upload.
const CandidateSourceResumeUpload = "resume_upload"

// Resume represents one uploaded document.
type Resume struct {
	ID                  uuid.UUID  `json:"id"`
	TenantID            uuid.UUID  `json:"tenant_id"`
	JobID               *uuid.UUID `json:"job_id,omitempty"`
	CandidateID         *uuid.UUID `json:"candidate_id,omitempty"`
	OriginalFileName    string     `json:"original_file_name"`
	StoragePath         string     `json:"storage_path"`
	FileType            string     `json:"file_type"`
	FileSize            int64      `json:"file_size"`
	ProcessingStatus    string     `json:"processing_status"`
	ProcessingError     *string    `json:"processing_error,omitempty"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ParsedText          *string    `json:"parsed_text,omitempty"`
	ParseConfidence     *float64   `json:"parse_confidence,omitempty"`
	IsPrimary           bool       `json:"is_primary"`
	UploadedAt          time.Time  `json:"uploaded_at"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
}

// ScoreExplanation is the human-readable payload attached to a score.
// Stored as JSONB.
type ScoreExplanation struct {
	Summary       string   `json:"summary"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	Highlights    []string `json:"highlights"`
	Concerns      []string `json:"concerns"`
}

// ResumeScore is the scoring result for a (resume, job) pair. At most one
// row exists per pair; re-scoring overwrites in place.
type ResumeScore struct {
	ResumeID           uuid.UUID        `json:"resume_id"`
	JobID              uuid.UUID        `json:"job_id"`
	OverallScore       int              `json:"overall_score"`
	Confidence         float64          `json:"confidence"`
	SkillsScore        int              `json:"skills_score"`
	ExperienceScore    int              `json:"experience_score"`
	EducationScore     int              `json:"education_score"`
	CertificationScore int              `json:"certification_score"`
	OverallFitScore    int              `json:"overall_fit_score"`
	Explanation        ScoreExplanation `json:"explanation"`
	ModelVersion       string           `json:"model_version"`
	RubricVersion      string           `json:"rubric_version"`
	ScoredAt           time.Time        `json:"scored_at"`
}

// Candidate is unique per (tenant, email), case-insensitive on email.
type Candidate struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	Location     *string   `json:"location,omitempty"`
	Source       string    `json:"source"`
	SourceDetail *string   `json:"source_detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Application links a candidate to a job. Created the first time a candidate
// is scored against a job.
type Application struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	JobID       uuid.UUID `json:"job_id"`
	Status      string    `json:"status"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job is the job-context view the pipeline needs for scoring.
type Job struct {
	ID             uuid.UUID `json:"id"`
	TenantID       uuid.UUID `json:"tenant_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Requirements   []string  `json:"requirements"`
	Department     *string   `json:"department,omitempty"`
	Location       *string   `json:"location,omitempty"`
	EmploymentType *string   `json:"employment_type,omitempty"`
}

// TenantQuota holds the tenant-wide limits and monthly counters.
type TenantQuota struct {
	TenantID              uuid.UUID `json:"tenant_id"`
	MaxJobs               int       `json:"max_jobs"`
	MaxCandidates         int       `json:"max_candidates"`
	MaxTeamMembers        int       `json:"max_team_members"`
	MaxAIScoresPerMonth   int       `json:"max_ai_scores_per_month"`
	AIScoresUsedThisMonth int       `json:"ai_scores_used_this_month"`
	UsageResetDate        time.Time `json:"usage_reset_date"`
}

// FeatureDefinition is a global catalog entry, read-only at runtime.
type FeatureDefinition struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Type           string `json:"type"`
	DefaultEnabled bool   `json:"default_enabled"`
	UsageLimited   bool   `json:"usage_limited"`
	DefaultLimit   *int   `json:"default_limit,omitempty"`
	SortOrder      int    `json:"sort_order"`
	Active         bool   `json:"active"`
}

// TenantFeature is a per-tenant override of a feature. Absence of a row
// means the feature's defaults apply.
type TenantFeature struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	FeatureID      string    `json:"feature_id"`
	Enabled        bool      `json:"enabled"`
	UsageLimit     *int      `json:"usage_limit,omitempty"`
	UsageCount     int       `json:"usage_count"`
	UsageResetDate time.Time `json:"usage_reset_date"`
}

// CandidateSummary is the candidate subset embedded in status projections.
type CandidateSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

// ResumeStatusEntry is the read-only projection served to polling clients.
type ResumeStatusEntry struct {
	ResumeID    uuid.UUID         `json:"resume_id"`
	FileName    string            `json:"file_name"`
	Status      string            `json:"status"`
	Error       *string           `json:"error,omitempty"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
	Candidate   *CandidateSummary `json:"candidate,omitempty"`
	Score       *int              `json:"score,omitempty"`
}

// NormalizeEmail lowercases and trims an email for dedup comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FirstOfMonth returns midnight UTC on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SameMonth reports whether two times fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
