// Package features resolves per-tenant feature entitlements: a global
// catalog of feature definitions combined with tenant-specific overrides and
// monthly usage counters.
package features

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/db"
)

// FeatureAIScreening gates AI resume scoring.
const FeatureAIScreening = "ai_screening"

// Store is the persistence surface the resolver needs. *db.DB satisfies it.
type Store interface {
	GetFeatureDefinition(ctx context.Context, featureID string) (*db.FeatureDefinition, error)
	GetTenantFeature(ctx context.Context, tenantID uuid.UUID, featureID string) (*db.TenantFeature, error)
	ResetTenantFeatureUsage(ctx context.Context, tenantID uuid.UUID, featureID string, resetDate time.Time) error
	// IncrementTenantFeatureUsage compares against limit and increments in a
	// single atomic operation; false means the limit was already reached.
	IncrementTenantFeatureUsage(ctx context.Context, tenantID uuid.UUID, featureID string, limit *int) (bool, error)
}

// Status is the resolved entitlement state of a feature for a tenant.
type Status struct {
	FeatureID    string `json:"feature_id"`
	Enabled      bool   `json:"enabled"`
	UsageLimited bool   `json:"usage_limited"`
	Limit        *int   `json:"limit,omitempty"`     // nil = unlimited
	Used         int    `json:"used"`
	Remaining    *int   `json:"remaining,omitempty"` // nil = unlimited
	CanUse       bool   `json:"can_use"`
}

// Resolver answers entitlement questions and records billable usage.
type Resolver struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewResolver creates a resolver.
func NewResolver(store Store, log *zap.Logger) *Resolver {
	return &Resolver{store: store, log: log, now: time.Now}
}

// ResolveStatus computes the entitlement state of a feature for a tenant.
// Read-only apart from the month rollover, which is applied before any value
// used for limit comparison so quota state is never stale across a month
// boundary.
func (r *Resolver) ResolveStatus(ctx context.Context, tenantID uuid.UUID, featureID string) (*Status, error) {
	def, err := r.store.GetFeatureDefinition(ctx, featureID)
	if err != nil {
		return nil, err
	}
	if def == nil || !def.Active {
		return nil, &ErrFeatureNotFound{FeatureID: featureID}
	}

	override, err := r.store.GetTenantFeature(ctx, tenantID, featureID)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override, err = r.rolloverIfNewMonth(ctx, tenantID, override)
		if err != nil {
			return nil, err
		}
	}

	status := &Status{
		FeatureID:    featureID,
		UsageLimited: def.UsageLimited,
	}

	// Standard features are always enabled regardless of overrides.
	if def.Type == db.FeatureTypeStandard {
		status.Enabled = true
	} else if override != nil {
		status.Enabled = override.Enabled
	} else {
		status.Enabled = def.DefaultEnabled
	}

	status.Limit = def.DefaultLimit
	if override != nil {
		if override.UsageLimit != nil {
			status.Limit = override.UsageLimit
		}
		status.Used = override.UsageCount
	}

	if status.Limit != nil {
		remaining := *status.Limit - status.Used
		if remaining < 0 {
			remaining = 0
		}
		status.Remaining = &remaining
	}

	status.CanUse = status.Enabled &&
		(!status.UsageLimited || status.Limit == nil || status.Used < *status.Limit)

	return status, nil
}

// CheckFeatureLimit raises a PermissionError when the feature is disabled or
// its quota is exhausted.
func (r *Resolver) CheckFeatureLimit(ctx context.Context, tenantID uuid.UUID, featureID string) error {
	status, err := r.ResolveStatus(ctx, tenantID, featureID)
	if err != nil {
		return err
	}
	if !status.Enabled {
		return &PermissionError{
			FeatureID: featureID,
			Message:   fmt.Sprintf("the %s feature is not available on your current plan", featureID),
		}
	}
	if !status.CanUse {
		return &PermissionError{
			FeatureID: featureID,
			Message:   fmt.Sprintf("monthly usage limit of %d reached for %s", *status.Limit, featureID),
		}
	}
	return nil
}

// IncrementUsage records one billable use of a feature. It no-ops for
// features without usage limits, and otherwise applies the month rollover
// before incrementing. The limit comparison happens inside the storage
// increment itself, not here: concurrent billable actions that both resolve
// headroom still converge on at most limit increments. Not idempotent:
// callers must invoke it exactly once per billable action.
func (r *Resolver) IncrementUsage(ctx context.Context, tenantID uuid.UUID, featureID string) error {
	status, err := r.ResolveStatus(ctx, tenantID, featureID)
	if err != nil {
		return err
	}
	if !status.Enabled {
		return &PermissionError{
			FeatureID: featureID,
			Message:   fmt.Sprintf("the %s feature is not available on your current plan", featureID),
		}
	}
	if !status.UsageLimited {
		return nil
	}

	ok, err := r.store.IncrementTenantFeatureUsage(ctx, tenantID, featureID, status.Limit)
	if err != nil {
		return err
	}
	if !ok {
		if status.Limit != nil {
			return &PermissionError{
				FeatureID: featureID,
				Message:   fmt.Sprintf("monthly usage limit of %d reached for %s", *status.Limit, featureID),
			}
		}
		return &ErrFeatureNotFound{FeatureID: featureID}
	}
	r.log.Debug("feature usage incremented",
		zap.String("tenant_id", tenantID.String()),
		zap.String("feature", featureID))
	return nil
}

// rolloverIfNewMonth zeroes the counter when the stored reset date falls in
// an earlier month than now. Calling it twice in the same month is a no-op
// the second time.
func (r *Resolver) rolloverIfNewMonth(ctx context.Context, tenantID uuid.UUID, tf *db.TenantFeature) (*db.TenantFeature, error) {
	now := r.now()
	if db.SameMonth(tf.UsageResetDate, now) {
		return tf, nil
	}

	resetDate := db.FirstOfMonth(now)
	if err := r.store.ResetTenantFeatureUsage(ctx, tenantID, tf.FeatureID, resetDate); err != nil {
		return nil, err
	}

	reset := *tf
	reset.UsageCount = 0
	reset.UsageResetDate = resetDate
	return &reset, nil
}
