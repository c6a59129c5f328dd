package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// URLHealthStats is a point-in-time aggregate over the deal store,
// independent of any running check.
type URLHealthStats struct {
	TotalActiveDeals     int64   `json:"total_active_deals"`
	HealthyURLs          int64   `json:"healthy_urls"`
	BrokenURLs           int64   `json:"broken_urls"`
	FlaggedPendingReview int64   `json:"flagged_pending_review"`
	Unchecked            int64   `json:"unchecked"`
	DataQualityIssues    int64   `json:"data_quality_issues"`
	HealthPercentage     float64 `json:"health_percentage"`
}

// StatsRepository computes the URL health aggregate.
type StatsRepository interface {
	URLHealthStats(ctx context.Context) (*URLHealthStats, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a pgx-backed StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

// One scan of the deals table covers every counter; FILTER keeps the
// per-classification predicates next to each other.
const urlHealthStatsQuery = `
SELECT
	COUNT(*) FILTER (WHERE is_active AND status IN ('approved', 'pending'))          AS total_active,
	COUNT(*) FILTER (WHERE is_active AND url_status = 'healthy')                     AS healthy,
	COUNT(*) FILTER (WHERE is_active AND url_status = 'broken')                      AS broken,
	COUNT(*) FILTER (WHERE url_status = 'broken'
		AND url_flagged_at IS NOT NULL AND status = 'pending')                       AS flagged,
	COUNT(*) FILTER (WHERE is_active
		AND (url_status = 'unchecked' OR url_status IS NULL))                        AS unchecked,
	COUNT(*) FILTER (WHERE status <> 'deleted' AND (
		image_url IS NULL OR image_url = '' OR
		title IS NULL OR title = '' OR
		description IS NULL OR description = '' OR
		store IS NULL OR store = '' OR
		category IS NULL OR category = '' OR
		affiliate_url IS NULL OR affiliate_url = '' OR
		original_price IS NULL OR original_price <= 0 OR
		sale_price IS NULL OR sale_price <= 0 OR
		sale_price >= original_price))                                               AS quality_issues
FROM deals`

func (r *statsRepository) URLHealthStats(ctx context.Context) (*URLHealthStats, error) {
	var stats URLHealthStats
	err := r.pool.QueryRow(ctx, urlHealthStatsQuery).Scan(
		&stats.TotalActiveDeals,
		&stats.HealthyURLs,
		&stats.BrokenURLs,
		&stats.FlaggedPendingReview,
		&stats.Unchecked,
		&stats.DataQualityIssues,
	)
	if err != nil {
		return nil, err
	}

	total := stats.TotalActiveDeals
	if total < 1 {
		total = 1
	}
	stats.HealthPercentage = float64(stats.HealthyURLs) / float64(total) * 100
	// Round to one decimal place for the admin surface.
	stats.HealthPercentage = float64(int64(stats.HealthPercentage*10+0.5)) / 10

	return &stats, nil
}
