package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dealsphere/dealsphere/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrDealNotFound signals that the requested deal does not exist.
	ErrDealNotFound = errors.New("deal not found")
)

// DealRepository defines the data access contract the health engine needs
// from the deal store: filtered selection plus batched health write-back.
type DealRepository interface {
	// SelectDueIDs returns IDs of active approved/pending deals due for a
	// probe, never-checked deals first. When checkAll is set the recency
	// filter and the limit are skipped.
	SelectDueIDs(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error)

	// GetByIDs fetches fresh deal records for one batch.
	GetByIDs(ctx context.Context, ids []string) ([]model.Deal, error)

	// SaveHealthResults persists the health fields of one probed batch in a
	// single transaction.
	SaveHealthResults(ctx context.Context, deals []*model.Deal) error

	// ListStaleFlagged returns deals still flagged and pending past the cutoff.
	ListStaleFlagged(ctx context.Context, cutoff time.Time) ([]model.Deal, error)

	// ListQualityViolations returns non-deleted deals violating structural
	// invariants (missing required fields or broken pricing).
	ListQualityViolations(ctx context.Context) ([]model.Deal, error)

	// SoftDeleteDeals marks the given deals deleted and inactive.
	SoftDeleteDeals(ctx context.Context, ids []string, now time.Time) (int64, error)
}

type dealRepository struct {
	db *gorm.DB
}

// NewDealRepository returns a GORM-backed DealRepository.
func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) SelectDueIDs(ctx context.Context, now time.Time, recheckInterval time.Duration, limit int, checkAll bool) ([]string, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Deal{}).
		Where("is_active = ?", true).
		Where("status IN ?", []string{model.DealStatusApproved, model.DealStatusPending})

	if !checkAll {
		query = query.
			Where("url_last_checked IS NULL OR url_last_checked < ?", now.Add(-recheckInterval)).
			Limit(limit)
	}

	var ids []string
	if err := query.
		Order("url_last_checked ASC NULLS FIRST").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *dealRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Deal, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var deals []model.Deal
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

func (r *dealRepository) SaveHealthResults(ctx context.Context, deals []*model.Deal) error {
	if len(deals) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, deal := range deals {
			result := tx.Model(&model.Deal{}).
				Where("id = ?", deal.ID).
				Updates(map[string]interface{}{
					"url_last_checked":   deal.URLLastChecked,
					"url_check_failures": deal.URLCheckFailures,
					"url_status":         deal.URLStatus,
					"url_flagged_at":     deal.URLFlaggedAt,
					"status":             deal.Status,
					"is_active":          deal.IsActive,
					"is_ai_approved":     deal.IsAIApproved,
					"deleted_at":         deal.DeletedAt,
				})
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
}

func (r *dealRepository) ListStaleFlagged(ctx context.Context, cutoff time.Time) ([]model.Deal, error) {
	var deals []model.Deal
	if err := r.db.WithContext(ctx).
		Where("url_status = ?", model.URLStatusBroken).
		Where("url_flagged_at IS NOT NULL AND url_flagged_at <= ?", cutoff).
		Where("status = ?", model.DealStatusPending).
		Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

// qualityViolationFilter matches the per-deal issue classification in the
// data quality sweep; keep the two in step.
const qualityViolationFilter = `
	image_url IS NULL OR image_url = '' OR
	title IS NULL OR title = '' OR
	description IS NULL OR description = '' OR
	store IS NULL OR store = '' OR
	category IS NULL OR category = '' OR
	affiliate_url IS NULL OR affiliate_url = '' OR
	original_price IS NULL OR original_price <= 0 OR
	sale_price IS NULL OR sale_price <= 0 OR
	sale_price >= original_price`

func (r *dealRepository) ListQualityViolations(ctx context.Context) ([]model.Deal, error) {
	var deals []model.Deal
	if err := r.db.WithContext(ctx).
		Where("status <> ?", model.DealStatusDeleted).
		Where(qualityViolationFilter).
		Find(&deals).Error; err != nil {
		return nil, err
	}
	return deals, nil
}

func (r *dealRepository) SoftDeleteDeals(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Deal{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"is_active":  false,
			"status":     model.DealStatusDeleted,
			"deleted_at": now,
		})
	return result.RowsAffected, result.Error
}
