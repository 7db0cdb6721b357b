package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateResume inserts a new resume row and fills in its ID and upload time.
func (db *DB) CreateResume(ctx context.Context, r *Resume) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO resumes (tenant_id, job_id, original_file_name, storage_path, file_type, file_size, processing_status, is_primary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, uploaded_at`,
		r.TenantID, r.JobID, r.OriginalFileName, r.StoragePath, r.FileType, r.FileSize, r.ProcessingStatus, r.IsPrimary,
	).Scan(&r.ID, &r.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}
	return nil
}

// GetResume retrieves a resume scoped to its tenant.
func (db *DB) GetResume(ctx context.Context, tenantID, resumeID uuid.UUID) (*Resume, error) {
	var r Resume
	err := db.pool.QueryRow(ctx,
		`SELECT id, tenant_id, job_id, candidate_id, original_file_name, storage_path, file_type, file_size,
		        processing_status, processing_error, processing_started_at, parsed_text, parse_confidence, is_primary, uploaded_at, processed_at
		 FROM resumes WHERE id = $1 AND tenant_id = $2`,
		resumeID, tenantID,
	).Scan(&r.ID, &r.TenantID, &r.JobID, &r.CandidateID, &r.OriginalFileName, &r.StoragePath, &r.FileType, &r.FileSize,
		&r.ProcessingStatus, &r.ProcessingError, &r.ProcessingStartedAt, &r.ParsedText, &r.ParseConfidence, &r.IsPrimary, &r.UploadedAt, &r.ProcessedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return &r, nil
}

// MarkResumeProcessing transitions a resume into processing, clears any
// prior error, and stamps the processing start time the staleness sweep keys
// on. The transition is only allowed from pending or failed, which closes the
// race between a manual retry and a broker redelivery: whichever side loses
// the conditional update gets false and must not start processing.
func (db *DB) MarkResumeProcessing(ctx context.Context, tenantID, resumeID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE resumes SET processing_status = $1, processing_error = NULL, processing_started_at = NOW()
		 WHERE id = $2 AND tenant_id = $3 AND processing_status IN ($4, $5)`,
		StatusProcessing, resumeID, tenantID, StatusPending, StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark resume processing: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// CompleteResume marks a resume completed and records the parse output and
// the candidate it was linked to.
func (db *DB) CompleteResume(ctx context.Context, resumeID, candidateID uuid.UUID, parsedText string, parseConfidence float64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE resumes SET processing_status = $1, processing_error = NULL, candidate_id = $2,
		        parsed_text = $3, parse_confidence = $4, processed_at = NOW()
		 WHERE id = $5`,
		StatusCompleted, candidateID, parsedText, parseConfidence, resumeID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete resume: %w", err)
	}
	return nil
}

// FailResume marks a resume failed with the captured error message.
func (db *DB) FailResume(ctx context.Context, resumeID uuid.UUID, message string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE resumes SET processing_status = $1, processing_error = $2, processed_at = NOW()
		 WHERE id = $3`,
		StatusFailed, message, resumeID,
	)
	if err != nil {
		return fmt.Errorf("failed to fail resume: %w", err)
	}
	return nil
}

// RecordResumeRetry keeps a resume in processing while recording the error
// from the failed attempt. Used when a queued message is abandoned for
// redelivery, signaling "still retrying" to status pollers. Refreshing the
// start timestamp keeps a live retry out of the staleness sweep's reach.
func (db *DB) RecordResumeRetry(ctx context.Context, resumeID uuid.UUID, message string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE resumes SET processing_status = $1, processing_error = $2, processing_started_at = NOW()
		 WHERE id = $3`,
		StatusProcessing, message, resumeID,
	)
	if err != nil {
		return fmt.Errorf("failed to record resume retry: %w", err)
	}
	return nil
}

// ListJobResumeStatuses returns the processing-status projection for every
// resume uploaded against a job, newest first. Read directly from the tables
// with no caching so pollers always see the latest persisted state.
func (db *DB) ListJobResumeStatuses(ctx context.Context, tenantID, jobID uuid.UUID) ([]ResumeStatusEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.id, r.original_file_name, r.processing_status, r.processing_error, r.uploaded_at, r.processed_at,
		        c.id, c.first_name, c.last_name, c.email,
		        s.overall_score
		 FROM resumes r
		 LEFT JOIN candidates c ON c.id = r.candidate_id
		 LEFT JOIN resume_scores s ON s.resume_id = r.id AND s.job_id = r.job_id
		 WHERE r.tenant_id = $1 AND r.job_id = $2
		 ORDER BY r.uploaded_at DESC`,
		tenantID, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resume statuses: %w", err)
	}
	defer rows.Close()

	var entries []ResumeStatusEntry
	for rows.Next() {
		var e ResumeStatusEntry
		var candID *uuid.UUID
		var first, last, email *string
		if err := rows.Scan(&e.ResumeID, &e.FileName, &e.Status, &e.Error, &e.UploadedAt, &e.ProcessedAt,
			&candID, &first, &last, &email, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan resume status: %w", err)
		}
		if candID != nil {
			e.Candidate = &CandidateSummary{ID: *candID}
			if first != nil {
				e.Candidate.FirstName = *first
			}
			if last != nil {
				e.Candidate.LastName = *last
			}
			if email != nil {
				e.Candidate.Email = *email
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FailStaleResumes sweeps resumes stuck in processing since before the
// cutoff to failed. Covers consumer crashes where the message lock expired
// with no further redelivery. Keyed on processing_started_at rather than
// upload time, so a fresh retry of an old upload is never swept mid-flight.
func (db *DB) FailStaleResumes(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE resumes SET processing_status = $1, processing_error = 'processing timed out', processed_at = NOW()
		 WHERE processing_status = $2 AND processing_started_at < $3`,
		StatusFailed, StatusProcessing, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale resumes: %w", err)
	}
	return result.RowsAffected(), nil
}
