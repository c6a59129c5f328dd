package model

import "time"

// AuditEvent is the persisted form of a LifecycleEvent, written by the
// audit consumer so lifecycle decisions survive beyond the event stream.
type AuditEvent struct {
	ID         string    `db:"id" gorm:"primaryKey;size:64"`
	DealID     string    `db:"deal_id" gorm:"size:64;not null;index"`
	Action     string    `db:"action" gorm:"size:32;not null"`
	Reason     string    `db:"reason" gorm:"type:text"`
	Issues     string    `db:"issues" gorm:"type:text"`
	OccurredAt time.Time `db:"occurred_at" gorm:"not null;index"`
	CreatedAt  time.Time `db:"created_at" gorm:"autoCreateTime"`
}

// TableName keeps the audit table name explicit.
func (AuditEvent) TableName() string {
	return "deal_audit_events"
}
