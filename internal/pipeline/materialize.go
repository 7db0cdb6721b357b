package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/ai"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/queue"
)

// materialize turns a completed analysis into durable rows: the deduplicated
// candidate, the upserted score, the application link, and the completed
// resume. Each step is idempotent, so a redelivered message that reruns this
// sequence converges on the same rows.
func (o *Orchestrator) materialize(ctx context.Context, payload queue.ProcessingPayload, job *db.Job, doc *ai.ParsedDocument, analysis *ai.Analysis) (uuid.UUID, error) {
	candidate, err := o.findOrCreateCandidate(ctx, payload, job, analysis.Candidate)
	if err != nil {
		return uuid.Nil, err
	}

	score := &db.ResumeScore{
		ResumeID:           payload.ResumeID,
		JobID:              payload.JobID,
		OverallScore:       analysis.OverallScore,
		Confidence:         analysis.Confidence,
		SkillsScore:        analysis.Dimensions.Skills,
		ExperienceScore:    analysis.Dimensions.Experience,
		EducationScore:     analysis.Dimensions.Education,
		CertificationScore: analysis.Dimensions.Certifications,
		OverallFitScore:    analysis.Dimensions.OverallFit,
		Explanation: db.ScoreExplanation{
			Summary:       analysis.Summary,
			MatchedSkills: analysis.MatchedSkills,
			MissingSkills: analysis.MissingSkills,
			Highlights:    analysis.Highlights,
			Concerns:      analysis.Concerns,
		},
		ModelVersion:  analysis.ModelVersion,
		RubricVersion: ai.RubricVersion,
	}
	if err := o.store.UpsertResumeScore(ctx, score); err != nil {
		return uuid.Nil, err
	}

	if err := o.ensureApplication(ctx, payload, candidate.ID, analysis.OverallScore); err != nil {
		return uuid.Nil, err
	}

	if err := o.store.CompleteResume(ctx, payload.ResumeID, candidate.ID, doc.Text, doc.Confidence); err != nil {
		return uuid.Nil, err
	}
	return candidate.ID, nil
}

// findOrCreateCandidate resolves the extracted candidate to a tenant-scoped
// row, deduplicating on case-insensitive email. An extraction that yields no
// email gets a per-resume placeholder address so the unique index still
// applies and reprocessing the same resume stays idempotent.
func (o *Orchestrator) findOrCreateCandidate(ctx context.Context, payload queue.ProcessingPayload, job *db.Job, extracted ai.CandidateData) (*db.Candidate, error) {
	email := db.NormalizeEmail(extracted.Email)
	if email == "" {
		email = fmt.Sprintf("resume-%s@unknown.invalid", payload.ResumeID)
	}

	existing, err := o.store.GetCandidateByEmail(ctx, payload.TenantID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		o.log.Debug("candidate matched by email",
			zap.String("candidate_id", existing.ID.String()),
			zap.String("tenant_id", payload.TenantID.String()))
		return existing, nil
	}

	firstName := extracted.FirstName
	lastName := extracted.LastName
	if firstName == "" && lastName == "" {
		firstName = "Unknown"
		lastName = "Candidate"
	}

	sourceDetail := fmt.Sprintf("Resume uploaded for %s", job.Title)
	candidate := &db.Candidate{
		TenantID:     payload.TenantID,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Source:       db.CandidateSourceResumeUpload,
		SourceDetail: &sourceDetail,
	}
	if extracted.Phone != "" {
		candidate.Phone = &extracted.Phone
	}
	if extracted.Location != "" {
		candidate.Location = &extracted.Location
	}
	if err := o.store.CreateCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	o.log.Info("candidate created",
		zap.String("candidate_id", candidate.ID.String()),
		zap.String("tenant_id", payload.TenantID.String()))
	return candidate, nil
}

// ensureApplication links the candidate to the job the first time they are
// scored against it. An existing application is left untouched.
func (o *Orchestrator) ensureApplication(ctx context.Context, payload queue.ProcessingPayload, candidateID uuid.UUID, overallScore int) error {
	existing, err := o.store.GetApplication(ctx, candidateID, payload.JobID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	notes := fmt.Sprintf("AI screening score: %d/100", overallScore)
	app := &db.Application{
		TenantID:    payload.TenantID,
		CandidateID: candidateID,
		JobID:       payload.JobID,
		Status:      db.ApplicationStatusNew,
		Notes:       &notes,
	}
	return o.store.CreateApplication(ctx, app)
}
