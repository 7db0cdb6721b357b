package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetApplication retrieves the application linking a candidate to a job.
func (db *DB) GetApplication(ctx context.Context, candidateID, jobID uuid.UUID) (*Application, error) {
	var a Application
	err := db.pool.QueryRow(ctx,
		`SELECT id, tenant_id, candidate_id, job_id, status, notes, created_at
		 FROM applications WHERE candidate_id = $1 AND job_id = $2`,
		candidateID, jobID,
	).Scan(&a.ID, &a.TenantID, &a.CandidateID, &a.JobID, &a.Status, &a.Notes, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &a, nil
}

// CreateApplication inserts an application. The unique index on
// (candidate_id, job_id) makes racing creates converge on one row.
func (db *DB) CreateApplication(ctx context.Context, a *Application) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO applications (tenant_id, candidate_id, job_id, status, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (candidate_id, job_id) DO NOTHING
		 RETURNING id, created_at`,
		a.TenantID, a.CandidateID, a.JobID, a.Status, a.Notes,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Lost the race; the existing application stands.
			existing, getErr := db.GetApplication(ctx, a.CandidateID, a.JobID)
			if getErr != nil {
				return getErr
			}
			if existing != nil {
				*a = *existing
				return nil
			}
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}
