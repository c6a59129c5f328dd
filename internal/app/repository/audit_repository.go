package repository

import (
	"context"

	"github.com/dealsphere/dealsphere/internal/app/model"
	"gorm.io/gorm"
)

// AuditRepository persists lifecycle events consumed off the event stream.
type AuditRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	ListByDeal(ctx context.Context, dealID string, limit int) ([]model.AuditEvent, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository returns a GORM-backed AuditRepository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditRepository) ListByDeal(ctx context.Context, dealID string, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []model.AuditEvent
	if err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
