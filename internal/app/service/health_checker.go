package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dealsphere/dealsphere/config"
	"github.com/dealsphere/dealsphere/internal/app/model"
	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	infraprom "github.com/dealsphere/dealsphere/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ErrCheckAlreadyRunning is surfaced when a run is triggered while another
// run holds the guard.
var ErrCheckAlreadyRunning = errors.New("a URL health check is already running")

// URLProber checks one URL; the production implementation is *Prober.
type URLProber interface {
	Probe(ctx context.Context, rawURL string) ProbeOutcome
}

// CheckStats summarizes one health check run. Failures are reported through
// the Error field rather than a returned error so callers always get the
// partial progress made before the failure.
type CheckStats struct {
	TotalChecked         int        `json:"total_checked"`
	Healthy              int        `json:"healthy"`
	Broken               int        `json:"broken"`
	FlaggedPendingReview int        `json:"flagged_pending_review"`
	Removed              int        `json:"removed"`
	Errors               int        `json:"errors"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	Message              string     `json:"message,omitempty"`
	Error                string     `json:"error,omitempty"`
}

// HealthChecker probes due deals in bounded-concurrency batches and drives
// each deal through the lifecycle transition policy.
type HealthChecker struct {
	logger   *zap.Logger
	repo     apprepository.DealRepository
	prober   URLProber
	events   EventPublisher
	guard    *RunGuard
	progress *ProgressTracker
	cfg      config.HealthCheckConfig
	now      func() time.Time
}

// NewHealthChecker wires the checker. events may be nil when no stream is
// configured.
func NewHealthChecker(logger *zap.Logger, repo apprepository.DealRepository, prober URLProber, events EventPublisher, cfg config.HealthCheckConfig) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Normalize()
	return &HealthChecker{
		logger:   logger,
		repo:     repo,
		prober:   prober,
		events:   events,
		guard:    NewRunGuard(),
		progress: NewProgressTracker(),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Progress returns the snapshot polled by the admin status endpoint.
func (c *HealthChecker) Progress() CheckProgress {
	return c.progress.Snapshot()
}

// Run executes one health check pass. When checkAll is set the recency
// filter and selection cap are skipped. At most one run executes at a time;
// a concurrent trigger returns immediately with ErrCheckAlreadyRunning in
// the stats.
func (c *HealthChecker) Run(ctx context.Context, checkAll bool) CheckStats {
	now := c.now()
	stats := CheckStats{StartedAt: now}

	if !c.guard.TryAcquire() {
		stats.Error = ErrCheckAlreadyRunning.Error()
		return stats
	}
	defer c.guard.Release()

	c.logger.Info("starting URL health check", zap.Bool("check_all", checkAll))

	dealIDs, err := c.repo.SelectDueIDs(ctx, now, c.cfg.RecheckInterval, c.cfg.SelectionLimit, checkAll)
	if err != nil {
		c.logger.Error("failed to select deals for URL check", zap.Error(err))
		c.progress.Fail()
		stats.Error = err.Error()
		return stats
	}

	if len(dealIDs) == 0 {
		c.logger.Info("no deals need URL checking right now")
		c.progress.Idle()
		stats.Message = "No deals needed checking"
		return stats
	}

	total := len(dealIDs)
	c.logger.Info("checking deal URLs",
		zap.Int("total", total),
		zap.Int("batch_size", c.cfg.BatchSize))
	c.progress.Begin(total)

	for start := 0; start < total; start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > total {
			end = total
		}

		if err := c.runBatch(ctx, dealIDs[start:end], now, &stats); err != nil {
			c.logger.Error("URL health check aborted", zap.Error(err))
			c.progress.Fail()
			stats.Error = err.Error()
			return stats
		}

		c.progress.Advance(stats.TotalChecked)
		c.logger.Info("batch complete",
			zap.Int("checked", stats.TotalChecked),
			zap.Int("total", total))
	}

	c.progress.Finish()
	completed := c.now()
	stats.CompletedAt = &completed

	c.logger.Info("URL health check completed",
		zap.Int("checked", stats.TotalChecked),
		zap.Int("healthy", stats.Healthy),
		zap.Int("broken", stats.Broken),
		zap.Int("flagged", stats.FlaggedPendingReview),
		zap.Int("removed", stats.Removed),
		zap.Int("errors", stats.Errors))
	return stats
}

// runBatch fetches fresh records for one batch, probes them under the
// concurrency bound and commits all transitions in one transaction. Batches
// run strictly sequentially so a crash loses at most one batch of probes.
func (c *HealthChecker) runBatch(ctx context.Context, ids []string, now time.Time, stats *CheckStats) error {
	deals, err := c.repo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	results := c.probeBatch(ctx, deals)

	updates := make([]*model.Deal, 0, len(deals))
	for i := range deals {
		stats.TotalChecked++

		if results[i].failed {
			stats.Errors++
			continue
		}

		deal := &deals[i]
		c.applyOutcome(deal, results[i].outcome, now, stats)
		updates = append(updates, deal)
	}

	return c.repo.SaveHealthResults(ctx, updates)
}

type probeResult struct {
	outcome ProbeOutcome
	failed  bool
}

// probeBatch runs all probes for one batch with a counting semaphore
// capping in-flight requests. A panicking probe is isolated and tallied as
// an error; it never takes down the batch.
func (c *HealthChecker) probeBatch(ctx context.Context, deals []model.Deal) []probeResult {
	results := make([]probeResult, len(deals))
	sem := make(chan struct{}, c.cfg.Concurrency)
	var wg sync.WaitGroup

	for i := range deals {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					results[i].failed = true
					c.logger.Error("URL probe panicked",
						zap.String("deal_id", deals[i].ID),
						zap.Any("panic", r))
				}
			}()

			infraprom.InflightProbes.Inc()
			outcome := c.prober.Probe(ctx, deals[i].AffiliateURL)
			infraprom.InflightProbes.Dec()

			infraprom.ProbesTotal.WithLabelValues(outcome.Reason()).Inc()
			results[i].outcome = outcome
		}(i)
	}

	wg.Wait()
	return results
}

// applyOutcome is the per-deal transition policy. Every probed deal gets
// url_last_checked stamped; everything else depends on the outcome kind.
func (c *HealthChecker) applyOutcome(deal *model.Deal, outcome ProbeOutcome, now time.Time, stats *CheckStats) {
	checked := now
	deal.URLLastChecked = &checked

	switch {
	case outcome.Accessible():
		recovered := deal.URLStatus == model.URLStatusBroken || deal.URLCheckFailures > 0
		deal.URLCheckFailures = 0
		deal.URLStatus = model.URLStatusHealthy
		// Recovery clears the flag so the staleness reaper can never remove
		// a deal that came back.
		deal.URLFlaggedAt = nil
		stats.Healthy++
		if recovered {
			c.publish(deal.ID, model.LifecycleActionRecovered, outcome.Reason(), nil)
		}

	case outcome.Definitive():
		// Dead-link signals are unambiguous; the deal is removed on the
		// first observation, whatever the failure counter says.
		flagged := now
		deal.URLStatus = model.URLStatusBroken
		deal.Status = model.DealStatusDeleted
		deal.IsActive = false
		deal.URLFlaggedAt = &flagged
		deal.URLCheckFailures++
		stats.Removed++
		infraprom.DealsRemovedTotal.Inc()
		c.logger.Info("deal removed, URL is dead",
			zap.String("deal_id", deal.ID),
			zap.Int("status_code", outcome.StatusCode),
			zap.String("reason", outcome.Reason()),
			zap.String("url", deal.AffiliateURL))
		c.publish(deal.ID, model.LifecycleActionRemoved, outcome.Reason(), nil)

	default:
		deal.URLCheckFailures++
		c.logger.Warn("deal URL failed check",
			zap.String("deal_id", deal.ID),
			zap.Int("failures", deal.URLCheckFailures),
			zap.Int("status_code", outcome.StatusCode),
			zap.String("reason", outcome.Reason()),
			zap.String("url", deal.AffiliateURL))

		if deal.URLCheckFailures >= c.cfg.FailureThreshold {
			// Grace path: lose public visibility, keep the deal alive for
			// review or recovery.
			flagged := now
			deal.URLStatus = model.URLStatusBroken
			deal.Status = model.DealStatusPending
			deal.IsAIApproved = false
			deal.URLFlaggedAt = &flagged
			stats.FlaggedPendingReview++
			infraprom.DealsFlaggedTotal.Inc()
			c.logger.Info("deal flagged pending review",
				zap.String("deal_id", deal.ID),
				zap.Int("failures", deal.URLCheckFailures))
			c.publish(deal.ID, model.LifecycleActionFlagged, outcome.Reason(), nil)
		} else {
			deal.URLStatus = model.URLStatusBroken
			stats.Broken++
		}
	}
}

func (c *HealthChecker) publish(dealID, action, reason string, issues []string) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(dealID, action, reason, issues); err != nil {
		c.logger.Warn("failed to publish lifecycle event",
			zap.String("deal_id", dealID),
			zap.String("action", action),
			zap.Error(err))
	}
}
