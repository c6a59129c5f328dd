package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dealsphere/dealsphere/config"
	"github.com/dealsphere/dealsphere/internal/app/model"
	"go.uber.org/zap"
)

type mockDealRepository struct {
	selectFn     func(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error)
	getFn        func(ctx context.Context, ids []string) ([]model.Deal, error)
	saveFn       func(ctx context.Context, deals []*model.Deal) error
	staleFn      func(ctx context.Context, cutoff time.Time) ([]model.Deal, error)
	qualityFn    func(ctx context.Context) ([]model.Deal, error)
	softDeleteFn func(ctx context.Context, ids []string, now time.Time) (int64, error)
}

func (m *mockDealRepository) SelectDueIDs(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error) {
	if m.selectFn != nil {
		return m.selectFn(ctx, now, recheckInterval, limit, checkAll)
	}
	return nil, nil
}

func (m *mockDealRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Deal, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockDealRepository) SaveHealthResults(ctx context.Context, deals []*model.Deal) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, deals)
	}
	return nil
}

func (m *mockDealRepository) ListStaleFlagged(ctx context.Context, cutoff time.Time) ([]model.Deal, error) {
	if m.staleFn != nil {
		return m.staleFn(ctx, cutoff)
	}
	return nil, nil
}

func (m *mockDealRepository) ListQualityViolations(ctx context.Context) ([]model.Deal, error) {
	if m.qualityFn != nil {
		return m.qualityFn(ctx)
	}
	return nil, nil
}

func (m *mockDealRepository) SoftDeleteDeals(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, ids, now)
	}
	return int64(len(ids)), nil
}

type probeFunc func(ctx context.Context, rawURL string) ProbeOutcome

func (f probeFunc) Probe(ctx context.Context, rawURL string) ProbeOutcome {
	return f(ctx, rawURL)
}

type recordedEvent struct {
	DealID string
	Action string
	Reason string
}

type mockPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *mockPublisher) Publish(dealID, action, reason string, issues []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{DealID: dealID, Action: action, Reason: reason})
	return nil
}

func (p *mockPublisher) byAction(action string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func testHealthConfig() config.HealthCheckConfig {
	cfg := config.HealthCheckConfig{}
	cfg.Normalize()
	return cfg
}

func newTestDeal(id string) model.Deal {
	price := 100.0
	sale := 50.0
	return model.Deal{
		ID:            id,
		Title:         "Test Deal " + id,
		Description:   "desc",
		OriginalPrice: &price,
		SalePrice:     &sale,
		ImageURL:      "https://img.example.com/" + id,
		AffiliateURL:  "https://shop.example.com/deal/" + id,
		Store:         "ExampleStore",
		Category:      "electronics",
		IsActive:      true,
		Status:        model.DealStatusApproved,
		URLStatus:     model.URLStatusUnchecked,
	}
}

// repoForDeals builds a mock repo serving the given deals and capturing
// every committed batch.
func repoForDeals(deals []model.Deal, saved *[][]*model.Deal) *mockDealRepository {
	byID := make(map[string]model.Deal, len(deals))
	ids := make([]string, len(deals))
	for i, d := range deals {
		byID[d.ID] = d
		ids[i] = d.ID
	}

	return &mockDealRepository{
		selectFn: func(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error) {
			return ids, nil
		},
		getFn: func(ctx context.Context, batch []string) ([]model.Deal, error) {
			out := make([]model.Deal, 0, len(batch))
			for _, id := range batch {
				out = append(out, byID[id])
			}
			return out, nil
		},
		saveFn: func(ctx context.Context, batch []*model.Deal) error {
			*saved = append(*saved, batch)
			return nil
		},
	}
}

func savedDeal(t *testing.T, saved [][]*model.Deal, id string) *model.Deal {
	t.Helper()
	for _, batch := range saved {
		for _, d := range batch {
			if d.ID == id {
				return d
			}
		}
	}
	t.Fatalf("deal %s was never persisted", id)
	return nil
}

func TestHealthChecker_SuccessIsIdempotent(t *testing.T) {
	deal := newTestDeal("d1")
	deal.URLStatus = model.URLStatusHealthy

	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible, StatusCode: 200}
	})

	for run := 0; run < 3; run++ {
		var saved [][]*model.Deal
		repo := repoForDeals([]model.Deal{deal}, &saved)
		checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())

		stats := checker.Run(context.Background(), false)
		if stats.Error != "" {
			t.Fatalf("run %d failed: %s", run, stats.Error)
		}
		if stats.Healthy != 1 {
			t.Fatalf("run %d: expected 1 healthy, got %d", run, stats.Healthy)
		}

		got := savedDeal(t, saved, "d1")
		if got.Status != model.DealStatusApproved {
			t.Errorf("run %d: status changed to %s", run, got.Status)
		}
		if got.URLCheckFailures != 0 {
			t.Errorf("run %d: failures = %d, want 0", run, got.URLCheckFailures)
		}
		if got.URLLastChecked == nil {
			t.Errorf("run %d: url_last_checked not stamped", run)
		}
		deal = *got
	}
}

func TestHealthChecker_FirstTransientFailureNeverChangesStatus(t *testing.T) {
	deal := newTestDeal("d1")

	var saved [][]*model.Deal
	repo := repoForDeals([]model.Deal{deal}, &saved)
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeTimeout, Err: "timeout"}
	})

	checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())
	stats := checker.Run(context.Background(), false)

	if stats.Broken != 1 || stats.FlaggedPendingReview != 0 {
		t.Fatalf("expected 1 broken / 0 flagged, got %d / %d", stats.Broken, stats.FlaggedPendingReview)
	}

	got := savedDeal(t, saved, "d1")
	if got.Status != model.DealStatusApproved {
		t.Errorf("one failure must not change status, got %s", got.Status)
	}
	if !got.IsActive {
		t.Error("one failure must not deactivate the deal")
	}
	if got.URLCheckFailures != 1 {
		t.Errorf("failures = %d, want 1", got.URLCheckFailures)
	}
	if got.URLStatus != model.URLStatusBroken {
		t.Errorf("url_status = %s, want broken", got.URLStatus)
	}
	if got.URLFlaggedAt != nil {
		t.Error("one failure must not flag the deal")
	}
}

func TestHealthChecker_SecondTransientFailureFlagsPendingReview(t *testing.T) {
	deal := newTestDeal("d1")
	deal.URLCheckFailures = 1
	deal.URLStatus = model.URLStatusBroken

	var saved [][]*model.Deal
	repo := repoForDeals([]model.Deal{deal}, &saved)
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeTimeout, Err: "timeout"}
	})
	publisher := &mockPublisher{}

	checker := NewHealthChecker(zap.NewNop(), repo, prober, publisher, testHealthConfig())
	stats := checker.Run(context.Background(), false)

	if stats.FlaggedPendingReview != 1 {
		t.Fatalf("expected 1 flagged, got %d", stats.FlaggedPendingReview)
	}

	got := savedDeal(t, saved, "d1")
	if got.Status != model.DealStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.IsAIApproved {
		t.Error("flagging must clear AI approval")
	}
	if !got.IsActive {
		t.Error("flagged deals stay active pending review")
	}
	if got.URLCheckFailures != 2 {
		t.Errorf("failures = %d, want 2", got.URLCheckFailures)
	}
	if got.URLFlaggedAt == nil {
		t.Error("flagging must stamp url_flagged_at")
	}
	if len(publisher.byAction(model.LifecycleActionFlagged)) != 1 {
		t.Error("expected one flagged lifecycle event")
	}
}

func TestHealthChecker_DefinitiveFailureRemovesImmediately(t *testing.T) {
	for _, kind := range []OutcomeKind{OutcomeSoftNotFound, OutcomeHardNotFound} {
		t.Run(ProbeOutcome{Kind: kind}.Reason(), func(t *testing.T) {
			deal := newTestDeal("d1") // zero prior failures

			var saved [][]*model.Deal
			repo := repoForDeals([]model.Deal{deal}, &saved)
			prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
				return ProbeOutcome{URL: rawURL, Kind: kind, StatusCode: 404}
			})
			publisher := &mockPublisher{}

			checker := NewHealthChecker(zap.NewNop(), repo, prober, publisher, testHealthConfig())
			stats := checker.Run(context.Background(), false)

			if stats.Removed != 1 {
				t.Fatalf("expected 1 removed, got %d", stats.Removed)
			}

			got := savedDeal(t, saved, "d1")
			if got.Status != model.DealStatusDeleted {
				t.Errorf("status = %s, want deleted", got.Status)
			}
			if got.IsActive {
				t.Error("removed deal must be inactive")
			}
			if got.URLStatus != model.URLStatusBroken {
				t.Errorf("url_status = %s, want broken", got.URLStatus)
			}
			if got.URLFlaggedAt == nil {
				t.Error("removal must stamp url_flagged_at")
			}
			if len(publisher.byAction(model.LifecycleActionRemoved)) != 1 {
				t.Error("expected one removed lifecycle event")
			}
		})
	}
}

func TestHealthChecker_RecoveryResetsFailuresAndClearsFlag(t *testing.T) {
	flagged := time.Now().UTC().Add(-time.Hour)
	deal := newTestDeal("d1")
	deal.Status = model.DealStatusPending
	deal.URLCheckFailures = 2
	deal.URLStatus = model.URLStatusBroken
	deal.URLFlaggedAt = &flagged

	var saved [][]*model.Deal
	repo := repoForDeals([]model.Deal{deal}, &saved)
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible, StatusCode: 200}
	})
	publisher := &mockPublisher{}

	checker := NewHealthChecker(zap.NewNop(), repo, prober, publisher, testHealthConfig())
	stats := checker.Run(context.Background(), false)

	if stats.Healthy != 1 {
		t.Fatalf("expected 1 healthy, got %d", stats.Healthy)
	}

	got := savedDeal(t, saved, "d1")
	if got.URLCheckFailures != 0 {
		t.Errorf("failures = %d, want 0", got.URLCheckFailures)
	}
	if got.URLStatus != model.URLStatusHealthy {
		t.Errorf("url_status = %s, want healthy", got.URLStatus)
	}
	if got.URLFlaggedAt != nil {
		t.Error("recovery must clear url_flagged_at")
	}
	// No auto-promotion out of pending; that is an admin or AI decision.
	if got.Status != model.DealStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if len(publisher.byAction(model.LifecycleActionRecovered)) != 1 {
		t.Error("expected one recovered lifecycle event")
	}
}

func TestHealthChecker_ConcurrentRunFailsFast(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	deal := newTestDeal("d1")
	var saved [][]*model.Deal
	repo := repoForDeals([]model.Deal{deal}, &saved)
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		once.Do(func() { close(started) })
		<-release
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible}
	})

	checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())

	done := make(chan CheckStats, 1)
	go func() { done <- checker.Run(context.Background(), false) }()
	<-started

	second := checker.Run(context.Background(), false)
	if second.Error != ErrCheckAlreadyRunning.Error() {
		t.Fatalf("expected already-running error, got %q", second.Error)
	}

	close(release)
	first := <-done
	if first.Error != "" {
		t.Fatalf("first run failed: %s", first.Error)
	}
}

func TestHealthChecker_ConcurrencyBound(t *testing.T) {
	const total = 50

	deals := make([]model.Deal, total)
	for i := range deals {
		deals[i] = newTestDeal(fmt.Sprintf("d%02d", i))
	}

	var inflight, peak atomic.Int64
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		cur := inflight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible}
	})

	var saved [][]*model.Deal
	repo := repoForDeals(deals, &saved)
	checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())

	stats := checker.Run(context.Background(), false)
	if stats.Error != "" {
		t.Fatalf("run failed: %s", stats.Error)
	}
	if stats.TotalChecked != total {
		t.Fatalf("checked %d, want %d", stats.TotalChecked, total)
	}
	if got := peak.Load(); got > 10 {
		t.Errorf("in-flight probes peaked at %d, bound is 10", got)
	}
}

func TestHealthChecker_BatchesCommitSequentially(t *testing.T) {
	const total = 120 // 3 batches at the default batch size of 50

	deals := make([]model.Deal, total)
	for i := range deals {
		deals[i] = newTestDeal(fmt.Sprintf("d%03d", i))
	}

	var saved [][]*model.Deal
	repo := repoForDeals(deals, &saved)
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible}
	})

	checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())
	stats := checker.Run(context.Background(), false)

	if stats.Error != "" {
		t.Fatalf("run failed: %s", stats.Error)
	}
	if len(saved) != 3 {
		t.Fatalf("expected 3 batch commits, got %d", len(saved))
	}
	if len(saved[0]) != 50 || len(saved[1]) != 50 || len(saved[2]) != 20 {
		t.Errorf("batch sizes = %d/%d/%d, want 50/50/20", len(saved[0]), len(saved[1]), len(saved[2]))
	}

	progress := checker.Progress()
	if progress.Status != CheckStatusDone || progress.Checked != total {
		t.Errorf("progress = %+v, want done with %d checked", progress, total)
	}
}

func TestHealthChecker_NoDueDealsStaysIdle(t *testing.T) {
	repo := &mockDealRepository{}
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		t.Fatal("prober must not run when nothing is due")
		return ProbeOutcome{}
	})

	checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())
	stats := checker.Run(context.Background(), false)

	if stats.Error != "" {
		t.Fatalf("unexpected error: %s", stats.Error)
	}
	if stats.Message == "" {
		t.Error("expected a message explaining the empty run")
	}
	if progress := checker.Progress(); progress.Status != CheckStatusIdle {
		t.Errorf("progress status = %s, want idle", progress.Status)
	}
}

func TestHealthChecker_SelectionErrorAbortsRun(t *testing.T) {
	repo := &mockDealRepository{
		selectFn: func(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error) {
			return nil, errors.New("connection reset")
		},
	}
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		return ProbeOutcome{}
	})

	checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())
	stats := checker.Run(context.Background(), false)

	if stats.Error == "" {
		t.Fatal("expected run-level error")
	}
	if progress := checker.Progress(); progress.Status != CheckStatusError {
		t.Errorf("progress status = %s, want error", progress.Status)
	}

	// The guard must be released so the next scheduled run can proceed.
	if !checker.guard.TryAcquire() {
		t.Error("run guard still held after failed run")
	}
}

func TestHealthChecker_PanickingProbeIsIsolated(t *testing.T) {
	deals := []model.Deal{newTestDeal("ok"), newTestDeal("boom")}

	var saved [][]*model.Deal
	repo := repoForDeals(deals, &saved)
	prober := probeFunc(func(ctx context.Context, rawURL string) ProbeOutcome {
		if rawURL == "https://shop.example.com/deal/boom" {
			panic("probe exploded")
		}
		return ProbeOutcome{URL: rawURL, Kind: OutcomeAccessible}
	})

	checker := NewHealthChecker(zap.NewNop(), repo, prober, nil, testHealthConfig())
	stats := checker.Run(context.Background(), false)

	if stats.Error != "" {
		t.Fatalf("a per-probe panic must not abort the run: %s", stats.Error)
	}
	if stats.Errors != 1 {
		t.Errorf("errors = %d, want 1", stats.Errors)
	}
	if stats.Healthy != 1 {
		t.Errorf("healthy = %d, want 1", stats.Healthy)
	}
	if stats.TotalChecked != 2 {
		t.Errorf("total checked = %d, want 2", stats.TotalChecked)
	}

	// The healthy deal still commits; the panicked one is skipped.
	got := savedDeal(t, saved, "ok")
	if got.URLStatus != model.URLStatusHealthy {
		t.Errorf("url_status = %s, want healthy", got.URLStatus)
	}
	for _, batch := range saved {
		for _, d := range batch {
			if d.ID == "boom" {
				t.Error("panicked probe must not persist field changes")
			}
		}
	}
}
