// Package pipeline orchestrates resume intake end to end: upload validation,
// quota preflight, blob persistence, dispatch to queued or inline processing,
// and materialization of candidates, scores, and applications.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/ai"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/parsing"
	"github.com/jonathan/talent-pipeline/internal/queue"
	"github.com/jonathan/talent-pipeline/internal/scoring"
	"github.com/jonathan/talent-pipeline/internal/storage"
)

var validate = validator.New()

// Store is the persistence surface the orchestrator needs. *db.DB satisfies
// it.
type Store interface {
	CreateResume(ctx context.Context, r *db.Resume) error
	GetResume(ctx context.Context, tenantID, resumeID uuid.UUID) (*db.Resume, error)
	MarkResumeProcessing(ctx context.Context, tenantID, resumeID uuid.UUID) (bool, error)
	CompleteResume(ctx context.Context, resumeID, candidateID uuid.UUID, parsedText string, parseConfidence float64) error
	FailResume(ctx context.Context, resumeID uuid.UUID, message string) error
	ListJobResumeStatuses(ctx context.Context, tenantID, jobID uuid.UUID) ([]db.ResumeStatusEntry, error)
	FailStaleResumes(ctx context.Context, cutoff time.Time) (int64, error)
	GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*db.Job, error)
	GetCandidateByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*db.Candidate, error)
	CreateCandidate(ctx context.Context, c *db.Candidate) error
	UpsertResumeScore(ctx context.Context, s *db.ResumeScore) error
	GetApplication(ctx context.Context, candidateID, jobID uuid.UUID) (*db.Application, error)
	CreateApplication(ctx context.Context, a *db.Application) error
}

// QuotaLedger enforces tenant-wide limits. *usage.Ledger satisfies it.
type QuotaLedger interface {
	EnforceAIScoreLimit(ctx context.Context, tenantID uuid.UUID) error
	EnforceCandidateLimit(ctx context.Context, tenantID uuid.UUID) error
	RecordAIScore(ctx context.Context, tenantID uuid.UUID) error
}

// Scorer runs the entitlement-gated AI analysis. *scoring.Agent satisfies it.
type Scorer interface {
	ScoreResume(ctx context.Context, tenantID, jobID uuid.UUID, resumeText string, hint *ai.CandidateData) (*ai.Analysis, *db.Job, error)
}

// Dispatcher hands work to the broker. *queue.Publisher satisfies it.
type Dispatcher interface {
	Enabled() bool
	Enqueue(ctx context.Context, payload queue.ProcessingPayload) (queue.EnqueueResult, error)
	PublishResult(ctx context.Context, payload queue.ResultPayload) error
}

// UploadRequest carries one resume upload.
type UploadRequest struct {
	TenantID uuid.UUID `validate:"required"`
	JobID    uuid.UUID `validate:"required"`
	UserID   uuid.UUID
	FileName string `validate:"required"`
	MimeType string `validate:"required"`
	Data     []byte `validate:"required"`
}

// Validate checks the request's structural invariants.
func (r *UploadRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid upload request: %w", err)
	}
	return nil
}

// UploadResult reports the accepted upload and how it will be processed.
type UploadResult struct {
	ResumeID uuid.UUID `json:"resume_id"`
	Status   string    `json:"status"`
	Queued   bool      `json:"queued"`
}

// Orchestrator drives the resume pipeline.
type Orchestrator struct {
	store        Store
	blobs        storage.Store
	parser       *parsing.Parser
	quotas       QuotaLedger
	scorer       Scorer
	dispatcher   Dispatcher
	staleTimeout time.Duration
	log          *zap.Logger
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(store Store, blobs storage.Store, parser *parsing.Parser, quotas QuotaLedger, scorer Scorer, dispatcher Dispatcher, staleTimeout time.Duration, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:        store,
		blobs:        blobs,
		parser:       parser,
		quotas:       quotas,
		scorer:       scorer,
		dispatcher:   dispatcher,
		staleTimeout: staleTimeout,
		log:          log,
	}
}

// UploadAndProcess validates an upload, runs all quota preflights, persists
// the blob and resume row, then dispatches processing. Every precondition is
// checked before any row or blob is written, so a rejected upload leaves no
// state behind. When no broker is configured, processing runs inline in a
// background goroutine and the call returns immediately either way.
func (o *Orchestrator) UploadAndProcess(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := o.parser.ValidateUpload(req.MimeType, int64(len(req.Data))); err != nil {
		return nil, err
	}
	if err := o.quotas.EnforceAIScoreLimit(ctx, req.TenantID); err != nil {
		return nil, err
	}
	if err := o.quotas.EnforceCandidateLimit(ctx, req.TenantID); err != nil {
		return nil, err
	}

	job, err := o.store.GetJob(ctx, req.TenantID, req.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &scoring.ErrJobNotFound{JobID: req.JobID}
	}

	fileID := uuid.New()
	storagePath := storage.ResumePath(req.TenantID, req.JobID, fileID, req.FileName)
	if err := o.blobs.Write(ctx, storagePath, req.Data); err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	resume := &db.Resume{
		TenantID:         req.TenantID,
		JobID:            &req.JobID,
		OriginalFileName: req.FileName,
		StoragePath:      storagePath,
		FileType:         req.MimeType,
		FileSize:         int64(len(req.Data)),
		ProcessingStatus: db.StatusPending,
	}
	if err := o.store.CreateResume(ctx, resume); err != nil {
		return nil, err
	}

	payload := queue.ProcessingPayload{
		ResumeID:         resume.ID,
		JobID:            req.JobID,
		TenantID:         req.TenantID,
		UserID:           req.UserID,
		StoragePath:      storagePath,
		OriginalFileName: req.FileName,
		FileType:         req.MimeType,
	}

	queued := false
	if o.dispatcher.Enabled() {
		if _, err := o.dispatcher.Enqueue(ctx, payload); err != nil {
			// The resume row and blob exist; falling back to inline keeps
			// the upload from being stranded in pending.
			o.log.Warn("enqueue failed, processing inline",
				zap.String("resume_id", resume.ID.String()),
				zap.Error(err))
			o.processInline(ctx, payload, req.Data)
		} else {
			queued = true
		}
	} else {
		o.processInline(ctx, payload, req.Data)
	}

	o.log.Info("resume upload accepted",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("resume_id", resume.ID.String()),
		zap.String("job_id", req.JobID.String()),
		zap.Bool("queued", queued))
	// The caller always sees processing: the work is dispatched by the time
	// the call returns, whichever mode took it.
	return &UploadResult{ResumeID: resume.ID, Status: db.StatusProcessing, Queued: queued}, nil
}

// processInline runs processing in the background, detached from the request
// context so a client disconnect does not abort the work.
func (o *Orchestrator) processInline(ctx context.Context, payload queue.ProcessingPayload, fileData []byte) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := o.ProcessResume(bg, payload, fileData); err != nil {
			o.log.Error("inline processing failed",
				zap.String("resume_id", payload.ResumeID.String()),
				zap.Error(err))
		}
	}()
}

// ProcessResume runs the full processing sequence for one resume: parse,
// score, materialize, complete. It is the single code path behind both the
// inline mode and the queue consumer. Returns the processing error so the
// consumer can apply its retry policy; the resume row is already marked
// failed by then, and an abandon overrides that back to processing.
func (o *Orchestrator) ProcessResume(ctx context.Context, payload queue.ProcessingPayload, fileData []byte) error {
	ok, err := o.store.MarkResumeProcessing(ctx, payload.TenantID, payload.ResumeID)
	if err != nil {
		return err
	}
	if !ok {
		// Another worker owns this resume, or it already completed. The
		// conditional transition lost; this delivery is a no-op.
		o.log.Info("resume not in a runnable state, skipping",
			zap.String("resume_id", payload.ResumeID.String()))
		return nil
	}

	start := time.Now()

	doc, err := o.parser.Parse(ctx, fileData, payload.OriginalFileName, payload.FileType)
	if err != nil {
		return o.failProcessing(ctx, payload, start, err)
	}

	analysis, job, err := o.scorer.ScoreResume(ctx, payload.TenantID, payload.JobID, doc.Text, nil)
	if err != nil {
		return o.failProcessing(ctx, payload, start, err)
	}

	if err := o.quotas.RecordAIScore(ctx, payload.TenantID); err != nil {
		// The analysis already ran; losing the counter update is better
		// than failing the resume after AI spend.
		o.log.Error("failed to record AI score usage",
			zap.String("tenant_id", payload.TenantID.String()),
			zap.Error(err))
	}

	candidateID, err := o.materialize(ctx, payload, job, doc, analysis)
	if err != nil {
		return o.failProcessing(ctx, payload, start, err)
	}

	elapsed := time.Since(start)
	o.publishResult(ctx, queue.ResultPayload{
		ResumeID:         payload.ResumeID,
		JobID:            payload.JobID,
		TenantID:         payload.TenantID,
		Status:           db.StatusCompleted,
		CandidateID:      &candidateID,
		OverallScore:     &analysis.OverallScore,
		ProcessingTimeMs: elapsed.Milliseconds(),
	})

	o.log.Info("resume processing completed",
		zap.String("resume_id", payload.ResumeID.String()),
		zap.String("candidate_id", candidateID.String()),
		zap.Int("overall_score", analysis.OverallScore),
		zap.Duration("elapsed", elapsed))
	return nil
}

// failProcessing records the failure on the resume row, emits a failure
// result, and returns the original error for the caller's retry policy.
func (o *Orchestrator) failProcessing(ctx context.Context, payload queue.ProcessingPayload, start time.Time, procErr error) error {
	if err := o.store.FailResume(ctx, payload.ResumeID, procErr.Error()); err != nil {
		o.log.Error("failed to mark resume failed",
			zap.String("resume_id", payload.ResumeID.String()),
			zap.Error(err))
	}
	o.publishResult(ctx, queue.ResultPayload{
		ResumeID:         payload.ResumeID,
		JobID:            payload.JobID,
		TenantID:         payload.TenantID,
		Status:           db.StatusFailed,
		Error:            procErr.Error(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
	return procErr
}

func (o *Orchestrator) publishResult(ctx context.Context, payload queue.ResultPayload) {
	if err := o.dispatcher.PublishResult(ctx, payload); err != nil {
		o.log.Error("failed to publish result message",
			zap.String("resume_id", payload.ResumeID.String()),
			zap.Error(err))
	}
}

// RetryProcessing re-dispatches a failed resume. Only failed resumes are
// retryable; everything else returns ErrRetryNotAllowed. The status guard in
// MarkResumeProcessing makes a concurrent retry and broker redelivery
// converge on a single processing run.
func (o *Orchestrator) RetryProcessing(ctx context.Context, tenantID, resumeID uuid.UUID) (*UploadResult, error) {
	resume, err := o.store.GetResume(ctx, tenantID, resumeID)
	if err != nil {
		return nil, err
	}
	if resume == nil {
		return nil, &ErrResumeNotFound{ResumeID: resumeID}
	}
	if resume.ProcessingStatus != db.StatusFailed {
		return nil, &ErrRetryNotAllowed{ResumeID: resumeID, Status: resume.ProcessingStatus}
	}
	if resume.JobID == nil {
		return nil, &ErrRetryNotAllowed{ResumeID: resumeID, Status: "unassigned"}
	}

	payload := queue.ProcessingPayload{
		ResumeID:         resume.ID,
		JobID:            *resume.JobID,
		TenantID:         resume.TenantID,
		StoragePath:      resume.StoragePath,
		OriginalFileName: resume.OriginalFileName,
		FileType:         resume.FileType,
	}

	queued := false
	if o.dispatcher.Enabled() {
		if _, err := o.dispatcher.Enqueue(ctx, payload); err != nil {
			return nil, err
		}
		queued = true
	} else {
		bg := context.WithoutCancel(ctx)
		go func() {
			data, err := o.blobs.Read(bg, payload.StoragePath)
			if err != nil {
				readErr := fmt.Errorf("failed to read stored file: %w", err)
				if failErr := o.store.FailResume(bg, payload.ResumeID, readErr.Error()); failErr != nil {
					o.log.Error("failed to mark resume failed", zap.Error(failErr))
				}
				o.log.Error("retry aborted", zap.String("resume_id", payload.ResumeID.String()), zap.Error(readErr))
				return
			}
			if err := o.ProcessResume(bg, payload, data); err != nil {
				o.log.Error("inline retry failed",
					zap.String("resume_id", payload.ResumeID.String()),
					zap.Error(err))
			}
		}()
	}

	o.log.Info("resume retry dispatched",
		zap.String("resume_id", resumeID.String()),
		zap.Bool("queued", queued))
	return &UploadResult{ResumeID: resumeID, Status: db.StatusProcessing, Queued: queued}, nil
}

// GetJobProcessingStatus returns the per-resume status projection for a job,
// newest upload first.
func (o *Orchestrator) GetJobProcessingStatus(ctx context.Context, tenantID, jobID uuid.UUID) ([]db.ResumeStatusEntry, error) {
	job, err := o.store.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &scoring.ErrJobNotFound{JobID: jobID}
	}
	return o.store.ListJobResumeStatuses(ctx, tenantID, jobID)
}

// SweepStaleResumes fails resumes stuck in processing longer than the stale
// timeout. Run periodically by the worker.
func (o *Orchestrator) SweepStaleResumes(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-o.staleTimeout)
	n, err := o.store.FailStaleResumes(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.log.Warn("failed stale resumes", zap.Int64("count", n))
	}
	return n, nil
}
