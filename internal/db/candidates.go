package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetCandidateByEmail retrieves a candidate by case-insensitive email within
// a tenant.
func (db *DB) GetCandidateByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Candidate, error) {
	var c Candidate
	err := db.pool.QueryRow(ctx,
		`SELECT id, tenant_id, first_name, last_name, email, phone, location, source, source_detail, created_at, updated_at
		 FROM candidates WHERE tenant_id = $1 AND lower(email) = $2`,
		tenantID, NormalizeEmail(email),
	).Scan(&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Location,
		&c.Source, &c.SourceDetail, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return &c, nil
}

// CreateCandidate inserts a candidate. A unique index on
// (tenant_id, lower(email)) backs the dedup invariant; concurrent inserts of
// the same email resolve to the existing row.
func (db *DB) CreateCandidate(ctx context.Context, c *Candidate) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO candidates (tenant_id, first_name, last_name, email, phone, location, source, source_detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (tenant_id, lower(email)) DO UPDATE SET updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		c.TenantID, c.FirstName, c.LastName, c.Email, c.Phone, c.Location, c.Source, c.SourceDetail,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

// CountCandidates returns the number of candidates a tenant has.
func (db *DB) CountCandidates(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM candidates WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return count, nil
}
