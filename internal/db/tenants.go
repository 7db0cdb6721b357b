package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetTenantQuota retrieves a tenant's quota fields.
func (db *DB) GetTenantQuota(ctx context.Context, tenantID uuid.UUID) (*TenantQuota, error) {
	var q TenantQuota
	err := db.pool.QueryRow(ctx,
		`SELECT id, max_jobs, max_candidates, max_team_members, max_ai_scores_per_month,
		        ai_scores_used_this_month, usage_reset_date
		 FROM tenants WHERE id = $1`,
		tenantID,
	).Scan(&q.TenantID, &q.MaxJobs, &q.MaxCandidates, &q.MaxTeamMembers, &q.MaxAIScoresPerMonth,
		&q.AIScoresUsedThisMonth, &q.UsageResetDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant quota: %w", err)
	}
	return &q, nil
}

// ResetMonthlyAIUsage zeroes the tenant's AI-score counter and stamps the
// reset date. The WHERE guard keeps the reset idempotent when two workers
// cross the month boundary at the same time.
func (db *DB) ResetMonthlyAIUsage(ctx context.Context, tenantID uuid.UUID, resetDate time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE tenants SET ai_scores_used_this_month = 0, usage_reset_date = $1
		 WHERE id = $2 AND usage_reset_date < $1`,
		resetDate, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset monthly AI usage: %w", err)
	}
	return nil
}

// IncrementAIScoreUsage bumps the tenant's monthly AI-score counter with the
// limit comparison inside the same statement. Returns false when the counter
// is already at the limit, so two concurrent uploads racing past the
// application-side check can never both land an increment.
func (db *DB) IncrementAIScoreUsage(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE tenants SET ai_scores_used_this_month = ai_scores_used_this_month + 1
		 WHERE id = $1 AND ai_scores_used_this_month < max_ai_scores_per_month`,
		tenantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment AI score usage: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// CountTeamMembers returns the number of users belonging to a tenant.
func (db *DB) CountTeamMembers(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count team members: %w", err)
	}
	return count, nil
}
