// Package scoring decides, in one place, whether a tenant may score a
// resume, and runs the analysis when it may.
package scoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/ai"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/features"
)

// FeatureGate is the entitlement surface the agent enforces through.
// *features.Resolver satisfies it.
type FeatureGate interface {
	CheckFeatureLimit(ctx context.Context, tenantID uuid.UUID, featureID string) error
	IncrementUsage(ctx context.Context, tenantID uuid.UUID, featureID string) error
}

// JobStore loads job context. *db.DB satisfies it.
type JobStore interface {
	GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*db.Job, error)
}

// ErrJobNotFound indicates the job is absent or owned by another tenant.
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// Agent orchestrates entitlement check, job load, AI analysis, and usage
// recording for one resume at a time.
type Agent struct {
	gate     FeatureGate
	jobs     JobStore
	provider ai.Provider
	log      *zap.Logger
}

// NewAgent creates a scoring agent.
func NewAgent(gate FeatureGate, jobs JobStore, provider ai.Provider, log *zap.Logger) *Agent {
	return &Agent{gate: gate, jobs: jobs, provider: provider, log: log}
}

// ScoreResume runs the scoring sequence: entitlement check, job load,
// analysis, then usage recording. The usage increment happens strictly after
// a successful analysis, so a failed analysis never consumes quota. Any
// failure leaves quota untouched and is returned to the caller; retries are
// the queue consumer's responsibility, not this component's.
func (a *Agent) ScoreResume(ctx context.Context, tenantID, jobID uuid.UUID, resumeText string, hint *ai.CandidateData) (*ai.Analysis, *db.Job, error) {
	if err := a.gate.CheckFeatureLimit(ctx, tenantID, features.FeatureAIScreening); err != nil {
		return nil, nil, err
	}

	job, err := a.jobs.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return nil, nil, &ErrJobNotFound{JobID: jobID}
	}

	analysis, err := a.provider.AnalyzeResume(ctx, ai.AnalyzeRequest{
		ResumeText: resumeText,
		Job:        jobContext(job),
		ParsedHint: hint,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := a.gate.IncrementUsage(ctx, tenantID, features.FeatureAIScreening); err != nil {
		return nil, nil, err
	}

	a.log.Info("resume scored",
		zap.String("tenant_id", tenantID.String()),
		zap.String("job_id", jobID.String()),
		zap.Int("overall_score", analysis.OverallScore),
		zap.Duration("analysis_time", analysis.ProcessingTime))
	return analysis, job, nil
}

func jobContext(job *db.Job) ai.JobContext {
	jc := ai.JobContext{
		Title:        job.Title,
		Description:  job.Description,
		Requirements: job.Requirements,
	}
	if job.Department != nil {
		jc.Department = *job.Department
	}
	if job.Location != nil {
		jc.Location = *job.Location
	}
	if job.EmploymentType != nil {
		jc.EmploymentType = *job.EmploymentType
	}
	return jc
}
