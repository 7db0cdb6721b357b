package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetJob retrieves a job scoped to its tenant. Returns nil when the job does
// not exist or belongs to a different tenant.
func (db *DB) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*Job, error) {
	var j Job
	err := db.pool.QueryRow(ctx,
		`SELECT id, tenant_id, title, description, requirements, department, location, employment_type
		 FROM jobs WHERE id = $1 AND tenant_id = $2`,
		jobID, tenantID,
	).Scan(&j.ID, &j.TenantID, &j.Title, &j.Description, &j.Requirements, &j.Department, &j.Location, &j.EmploymentType)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &j, nil
}

// CountJobs returns the number of jobs a tenant has.
func (db *DB) CountJobs(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}
