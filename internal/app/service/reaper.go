package service

import (
	"context"
	"strings"
	"time"

	"github.com/dealsphere/dealsphere/internal/app/model"
	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	infraprom "github.com/dealsphere/dealsphere/internal/infra/prometheus"
	"go.uber.org/zap"
)

// StaleCleanupStats summarizes one staleness sweep.
type StaleCleanupStats struct {
	Removed    int       `json:"removed"`
	CutoffTime time.Time `json:"cutoff_time"`
	Error      string    `json:"error,omitempty"`
}

// RemovedDeal records why one deal was removed by the quality sweep.
type RemovedDeal struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Issues []string `json:"issues"`
}

// QualityCleanupStats summarizes one data quality sweep.
type QualityCleanupStats struct {
	Removed               int           `json:"removed"`
	MissingImage          int           `json:"missing_image"`
	InvalidPricing        int           `json:"invalid_pricing"`
	MissingRequiredFields int           `json:"missing_required_fields"`
	StartedAt             time.Time     `json:"started_at"`
	CompletedAt           *time.Time    `json:"completed_at,omitempty"`
	RemovedDeals          []RemovedDeal `json:"removed_deals"`
	Error                 string        `json:"error,omitempty"`
}

// DealReaper runs the two cleanup sweeps: TTL-based removal of deals stuck
// in flagged review, and structural data quality enforcement. Both operate
// independently of an active health check run.
type DealReaper struct {
	logger *zap.Logger
	repo   apprepository.DealRepository
	events EventPublisher
	ttl    time.Duration
	now    func() time.Time
}

// NewDealReaper wires a reaper; ttl is the flagged-pending-review grace
// window. events may be nil.
func NewDealReaper(logger *zap.Logger, repo apprepository.DealRepository, events EventPublisher, ttl time.Duration) *DealReaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DealReaper{
		logger: logger,
		repo:   repo,
		events: events,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CleanupStaleFlagged permanently soft-deletes deals that sat flagged and
// pending review past the TTL without recovering.
func (r *DealReaper) CleanupStaleFlagged(ctx context.Context) StaleCleanupStats {
	now := r.now()
	cutoff := now.Add(-r.ttl)
	stats := StaleCleanupStats{CutoffTime: cutoff}

	r.logger.Info("starting cleanup of stale URL-flagged deals", zap.Time("cutoff", cutoff))

	stale, err := r.repo.ListStaleFlagged(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to list stale flagged deals", zap.Error(err))
		stats.Error = err.Error()
		return stats
	}

	if len(stale) == 0 {
		return stats
	}

	ids := make([]string, len(stale))
	for i, deal := range stale {
		ids[i] = deal.ID
	}

	removed, err := r.repo.SoftDeleteDeals(ctx, ids, now)
	if err != nil {
		r.logger.Error("failed to remove stale flagged deals", zap.Error(err))
		stats.Error = err.Error()
		return stats
	}
	stats.Removed = int(removed)
	infraprom.ReaperRemovedTotal.WithLabelValues("stale").Add(float64(removed))

	for _, deal := range stale {
		r.logger.Info("removed stale deal",
			zap.String("deal_id", deal.ID),
			zap.Timep("flagged_at", deal.URLFlaggedAt))
		r.publish(deal.ID, model.LifecycleActionStaleRemoved, "flagged_ttl_expired", nil)
	}

	r.logger.Info("stale deal cleanup completed", zap.Int("removed", stats.Removed))
	return stats
}

// CleanupDataQuality soft-deletes non-deleted deals that violate baseline
// structural invariants, recording the violated invariants per deal.
func (r *DealReaper) CleanupDataQuality(ctx context.Context) QualityCleanupStats {
	now := r.now()
	stats := QualityCleanupStats{StartedAt: now, RemovedDeals: []RemovedDeal{}}

	r.logger.Info("starting data quality cleanup for active deals")

	bad, err := r.repo.ListQualityViolations(ctx)
	if err != nil {
		r.logger.Error("failed to list quality violations", zap.Error(err))
		stats.Error = err.Error()
		return stats
	}

	ids := make([]string, 0, len(bad))
	for i := range bad {
		deal := &bad[i]
		issues := classifyQualityIssues(deal, &stats)

		ids = append(ids, deal.ID)
		stats.RemovedDeals = append(stats.RemovedDeals, RemovedDeal{
			ID:     deal.ID,
			Title:  truncateTitle(deal.Title),
			Issues: issues,
		})
		r.logger.Info("removing deal with data quality issues",
			zap.String("deal_id", deal.ID),
			zap.Strings("issues", issues))
		r.publish(deal.ID, model.LifecycleActionQualityRemoved, "data_quality", issues)
	}

	if len(ids) > 0 {
		removed, err := r.repo.SoftDeleteDeals(ctx, ids, now)
		if err != nil {
			r.logger.Error("failed to remove quality-violating deals", zap.Error(err))
			stats.Error = err.Error()
			return stats
		}
		stats.Removed = int(removed)
		infraprom.ReaperRemovedTotal.WithLabelValues("quality").Add(float64(removed))
	}

	completed := r.now()
	stats.CompletedAt = &completed
	r.logger.Info("data quality cleanup completed", zap.Int("removed", stats.Removed))
	return stats
}

// classifyQualityIssues names every invariant the deal violates and bumps
// the per-category counters.
func classifyQualityIssues(deal *model.Deal, stats *QualityCleanupStats) []string {
	var issues []string

	if isBlank(deal.ImageURL) {
		issues = append(issues, "missing_image")
		stats.MissingImage++
	}
	if isBlank(deal.Title) {
		issues = append(issues, "missing_title")
		stats.MissingRequiredFields++
	}
	if isBlank(deal.Description) {
		issues = append(issues, "missing_description")
		stats.MissingRequiredFields++
	}
	if isBlank(deal.Store) {
		issues = append(issues, "missing_store")
		stats.MissingRequiredFields++
	}
	if isBlank(deal.Category) {
		issues = append(issues, "missing_category")
		stats.MissingRequiredFields++
	}
	if isBlank(deal.AffiliateURL) {
		issues = append(issues, "missing_affiliate_url")
		stats.MissingRequiredFields++
	}
	if deal.OriginalPrice == nil || *deal.OriginalPrice <= 0 {
		issues = append(issues, "invalid_original_price")
		stats.InvalidPricing++
	}
	if deal.SalePrice == nil || *deal.SalePrice <= 0 {
		issues = append(issues, "invalid_sale_price")
		stats.InvalidPricing++
	}
	if deal.OriginalPrice != nil && deal.SalePrice != nil &&
		*deal.OriginalPrice > 0 && *deal.SalePrice >= *deal.OriginalPrice {
		issues = append(issues, "sale_price_not_lower")
		stats.InvalidPricing++
	}

	return issues
}

func (r *DealReaper) publish(dealID, action, reason string, issues []string) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(dealID, action, reason, issues); err != nil {
		r.logger.Warn("failed to publish lifecycle event",
			zap.String("deal_id", dealID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func truncateTitle(title string) string {
	if title == "" {
		return "(no title)"
	}
	if len(title) > 60 {
		return title[:60]
	}
	return title
}
