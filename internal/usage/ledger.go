// Package usage enforces tenant-wide quotas: the monthly AI-score counter
// with rollover, and lifetime caps on jobs, candidates, and team members.
// Deliberately independent of the per-feature entitlement layer; both checks
// run and either can block the pipeline.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/db"
)

// Store is the persistence surface the ledger needs. *db.DB satisfies it.
type Store interface {
	GetTenantQuota(ctx context.Context, tenantID uuid.UUID) (*db.TenantQuota, error)
	ResetMonthlyAIUsage(ctx context.Context, tenantID uuid.UUID, resetDate time.Time) error
	// IncrementAIScoreUsage compares against the monthly limit and increments
	// in a single atomic operation; false means the limit was already reached.
	IncrementAIScoreUsage(ctx context.Context, tenantID uuid.UUID) (bool, error)
	CountJobs(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountCandidates(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountTeamMembers(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// ErrTenantNotFound indicates no tenant row exists.
type ErrTenantNotFound struct {
	TenantID uuid.UUID
}

func (e *ErrTenantNotFound) Error() string {
	return fmt.Sprintf("tenant not found: %s", e.TenantID)
}

// QuotaError indicates a tenant-level limit was reached. The message always
// names the numeric limit.
type QuotaError struct {
	Resource string
	Limit    int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s limit of %d reached for your plan", e.Resource, e.Limit)
}

// Ledger reads and updates tenant quota state.
type Ledger struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewLedger creates a ledger.
func NewLedger(store Store, log *zap.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

// EnforceAIScoreLimit blocks when the tenant's monthly AI-score allowance is
// used up. The month rollover is applied before the comparison.
func (l *Ledger) EnforceAIScoreLimit(ctx context.Context, tenantID uuid.UUID) error {
	quota, err := l.currentQuota(ctx, tenantID)
	if err != nil {
		return err
	}
	if quota.AIScoresUsedThisMonth >= quota.MaxAIScoresPerMonth {
		return &QuotaError{Resource: "monthly AI score", Limit: quota.MaxAIScoresPerMonth}
	}
	return nil
}

// RecordAIScore increments the tenant's monthly counter after a successful
// analysis. Rollover is evaluated immediately before the increment; the limit
// comparison lives inside the storage increment, so concurrent recordings
// cannot push the counter past the monthly limit.
func (l *Ledger) RecordAIScore(ctx context.Context, tenantID uuid.UUID) error {
	quota, err := l.currentQuota(ctx, tenantID)
	if err != nil {
		return err
	}
	ok, err := l.store.IncrementAIScoreUsage(ctx, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return &QuotaError{Resource: "monthly AI score", Limit: quota.MaxAIScoresPerMonth}
	}
	l.log.Debug("AI score usage recorded", zap.String("tenant_id", tenantID.String()))
	return nil
}

// EnforceJobLimit blocks when the tenant is at its job cap.
func (l *Ledger) EnforceJobLimit(ctx context.Context, tenantID uuid.UUID) error {
	quota, err := l.currentQuota(ctx, tenantID)
	if err != nil {
		return err
	}
	count, err := l.store.CountJobs(ctx, tenantID)
	if err != nil {
		return err
	}
	if count >= quota.MaxJobs {
		return &QuotaError{Resource: "job", Limit: quota.MaxJobs}
	}
	return nil
}

// EnforceCandidateLimit blocks when the tenant is at its candidate cap.
func (l *Ledger) EnforceCandidateLimit(ctx context.Context, tenantID uuid.UUID) error {
	quota, err := l.currentQuota(ctx, tenantID)
	if err != nil {
		return err
	}
	count, err := l.store.CountCandidates(ctx, tenantID)
	if err != nil {
		return err
	}
	if count >= quota.MaxCandidates {
		return &QuotaError{Resource: "candidate", Limit: quota.MaxCandidates}
	}
	return nil
}

// EnforceTeamMemberLimit blocks when the tenant is at its seat cap.
func (l *Ledger) EnforceTeamMemberLimit(ctx context.Context, tenantID uuid.UUID) error {
	quota, err := l.currentQuota(ctx, tenantID)
	if err != nil {
		return err
	}
	count, err := l.store.CountTeamMembers(ctx, tenantID)
	if err != nil {
		return err
	}
	if count >= quota.MaxTeamMembers {
		return &QuotaError{Resource: "team member", Limit: quota.MaxTeamMembers}
	}
	return nil
}

// currentQuota loads the tenant quota with the month rollover applied.
func (l *Ledger) currentQuota(ctx context.Context, tenantID uuid.UUID) (*db.TenantQuota, error) {
	quota, err := l.store.GetTenantQuota(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if quota == nil {
		return nil, &ErrTenantNotFound{TenantID: tenantID}
	}

	now := l.now()
	if !db.SameMonth(quota.UsageResetDate, now) {
		resetDate := db.FirstOfMonth(now)
		if err := l.store.ResetMonthlyAIUsage(ctx, tenantID, resetDate); err != nil {
			return nil, err
		}
		quota.AIScoresUsedThisMonth = 0
		quota.UsageResetDate = resetDate
	}
	return quota, nil
}
