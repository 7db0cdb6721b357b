package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetFeatureDefinition retrieves a catalog entry by feature ID.
func (db *DB) GetFeatureDefinition(ctx context.Context, featureID string) (*FeatureDefinition, error) {
	var f FeatureDefinition
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, category, type, default_enabled, usage_limited, default_limit, sort_order, active
		 FROM feature_definitions WHERE id = $1`,
		featureID,
	).Scan(&f.ID, &f.Name, &f.Category, &f.Type, &f.DefaultEnabled, &f.UsageLimited, &f.DefaultLimit, &f.SortOrder, &f.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get feature definition: %w", err)
	}
	return &f, nil
}

// GetTenantFeature retrieves a tenant's override row for a feature. Nil
// means no override exists and the definition's defaults apply.
func (db *DB) GetTenantFeature(ctx context.Context, tenantID uuid.UUID, featureID string) (*TenantFeature, error) {
	var tf TenantFeature
	err := db.pool.QueryRow(ctx,
		`SELECT tenant_id, feature_id, enabled, usage_limit, usage_count, usage_reset_date
		 FROM tenant_features WHERE tenant_id = $1 AND feature_id = $2`,
		tenantID, featureID,
	).Scan(&tf.TenantID, &tf.FeatureID, &tf.Enabled, &tf.UsageLimit, &tf.UsageCount, &tf.UsageResetDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant feature: %w", err)
	}
	return &tf, nil
}

// ResetTenantFeatureUsage zeroes the per-feature counter and stamps the
// reset date, guarded so the reset happens exactly once per month boundary.
func (db *DB) ResetTenantFeatureUsage(ctx context.Context, tenantID uuid.UUID, featureID string, resetDate time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE tenant_features SET usage_count = 0, usage_reset_date = $1
		 WHERE tenant_id = $2 AND feature_id = $3 AND usage_reset_date < $1`,
		resetDate, tenantID, featureID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset tenant feature usage: %w", err)
	}
	return nil
}

// IncrementTenantFeatureUsage bumps the per-feature counter, creating the
// override row on first use with the definition's default enablement so the
// feature's resolved state is unchanged. The resolved limit is compared
// inside the statement itself; a nil limit means unlimited. Returns false
// when the counter is already at the limit (or the feature vanished from the
// catalog), so concurrent billable actions cannot push usage past the limit
// no matter what the callers read beforehand.
func (db *DB) IncrementTenantFeatureUsage(ctx context.Context, tenantID uuid.UUID, featureID string, limit *int) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`INSERT INTO tenant_features (tenant_id, feature_id, enabled, usage_count, usage_reset_date)
		 SELECT $1, fd.id, fd.default_enabled, 1, date_trunc('month', NOW())
		 FROM feature_definitions fd WHERE fd.id = $2 AND ($3::int IS NULL OR $3::int >= 1)
		 ON CONFLICT (tenant_id, feature_id) DO UPDATE
		     SET usage_count = tenant_features.usage_count + 1
		     WHERE $3::int IS NULL OR tenant_features.usage_count < $3::int`,
		tenantID, featureID, limit,
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment tenant feature usage: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
