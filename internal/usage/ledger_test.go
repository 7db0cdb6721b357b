package usage

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/db"
)

type fakeStore struct {
	mu          sync.Mutex
	quota       *db.TenantQuota
	jobs        int
	candidates  int
	teamMembers int
	resetCalls  int
}

func (f *fakeStore) GetTenantQuota(_ context.Context, _ uuid.UUID) (*db.TenantQuota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quota == nil {
		return nil, nil
	}
	cp := *f.quota
	return &cp, nil
}

func (f *fakeStore) ResetMonthlyAIUsage(_ context.Context, _ uuid.UUID, resetDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	if f.quota != nil && f.quota.UsageResetDate.Before(resetDate) {
		f.quota.AIScoresUsedThisMonth = 0
		f.quota.UsageResetDate = resetDate
	}
	return nil
}

// IncrementAIScoreUsage mirrors the conditional UPDATE: the limit comparison
// and the increment happen under the same lock.
func (f *fakeStore) IncrementAIScoreUsage(_ context.Context, _ uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quota.AIScoresUsedThisMonth >= f.quota.MaxAIScoresPerMonth {
		return false, nil
	}
	f.quota.AIScoresUsedThisMonth++
	return true, nil
}

func (f *fakeStore) CountJobs(_ context.Context, _ uuid.UUID) (int, error)        { return f.jobs, nil }
func (f *fakeStore) CountCandidates(_ context.Context, _ uuid.UUID) (int, error)  { return f.candidates, nil }
func (f *fakeStore) CountTeamMembers(_ context.Context, _ uuid.UUID) (int, error) { return f.teamMembers, nil }

func testQuota() *db.TenantQuota {
	return &db.TenantQuota{
		TenantID:            uuid.New(),
		MaxJobs:             10,
		MaxCandidates:       100,
		MaxTeamMembers:      5,
		MaxAIScoresPerMonth: 50,
		UsageResetDate:      db.FirstOfMonth(time.Now()),
	}
}

func TestEnforceAIScoreLimit(t *testing.T) {
	store := &fakeStore{quota: testQuota()}
	l := NewLedger(store, zap.NewNop())
	tenant := uuid.New()

	if err := l.EnforceAIScoreLimit(context.Background(), tenant); err != nil {
		t.Fatalf("expected headroom, got %v", err)
	}

	store.quota.AIScoresUsedThisMonth = 50
	err := l.EnforceAIScoreLimit(context.Background(), tenant)
	if err == nil {
		t.Fatal("expected quota error at limit")
	}
	// The message must name the numeric limit.
	if !strings.Contains(err.Error(), "50") {
		t.Errorf("error %q does not name the limit", err.Error())
	}
}

func TestEnforceAIScoreLimitUnknownTenant(t *testing.T) {
	l := NewLedger(&fakeStore{}, zap.NewNop())

	err := l.EnforceAIScoreLimit(context.Background(), uuid.New())
	if _, ok := err.(*ErrTenantNotFound); !ok {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestRecordAIScore(t *testing.T) {
	store := &fakeStore{quota: testQuota()}
	l := NewLedger(store, zap.NewNop())

	if err := l.RecordAIScore(context.Background(), uuid.New()); err != nil {
		t.Fatalf("RecordAIScore failed: %v", err)
	}
	if store.quota.AIScoresUsedThisMonth != 1 {
		t.Errorf("counter = %d, want 1", store.quota.AIScoresUsedThisMonth)
	}
}

func TestRecordAIScoreConcurrentAtLimit(t *testing.T) {
	store := &fakeStore{quota: testQuota()}
	store.quota.MaxAIScoresPerMonth = 1
	l := NewLedger(store, zap.NewNop())
	tenant := uuid.New()

	// Two recordings race with one unit of headroom; the conditional
	// increment lets exactly one through.
	start := make(chan struct{})
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			errs <- l.RecordAIScore(context.Background(), tenant)
		}()
	}
	close(start)

	denied := 0
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			if _, ok := err.(*QuotaError); !ok {
				t.Fatalf("expected QuotaError, got %v", err)
			}
			denied++
		}
	}
	if denied != 1 {
		t.Errorf("denied = %d, want exactly 1", denied)
	}
	if store.quota.AIScoresUsedThisMonth != 1 {
		t.Errorf("counter = %d, want 1", store.quota.AIScoresUsedThisMonth)
	}
}

func TestMonthlyRollover(t *testing.T) {
	store := &fakeStore{quota: testQuota()}
	store.quota.AIScoresUsedThisMonth = 50
	store.quota.UsageResetDate = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	l := NewLedger(store, zap.NewNop())
	l.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }

	// Last month's exhausted counter must not block a new month.
	if err := l.EnforceAIScoreLimit(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected rollover to clear the counter, got %v", err)
	}
	if store.quota.AIScoresUsedThisMonth != 0 {
		t.Errorf("counter = %d after rollover, want 0", store.quota.AIScoresUsedThisMonth)
	}

	// Idempotent within the month.
	if err := l.EnforceAIScoreLimit(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.resetCalls != 1 {
		t.Errorf("resetCalls = %d, want 1", store.resetCalls)
	}
}

func TestEntityCaps(t *testing.T) {
	store := &fakeStore{quota: testQuota(), jobs: 10, candidates: 99, teamMembers: 5}
	l := NewLedger(store, zap.NewNop())
	tenant := uuid.New()
	ctx := context.Background()

	if err := l.EnforceJobLimit(ctx, tenant); err == nil {
		t.Error("expected job cap to block")
	}
	if err := l.EnforceCandidateLimit(ctx, tenant); err != nil {
		t.Errorf("expected candidate headroom, got %v", err)
	}
	err := l.EnforceTeamMemberLimit(ctx, tenant)
	if err == nil {
		t.Fatal("expected team member cap to block")
	}
	if !strings.Contains(err.Error(), "team member limit of 5") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
