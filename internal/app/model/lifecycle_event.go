package model

import "time"

// Lifecycle actions emitted by the health engine.
const (
	LifecycleActionRemoved        = "removed"
	LifecycleActionFlagged        = "flagged"
	LifecycleActionRecovered      = "recovered"
	LifecycleActionStaleRemoved   = "stale_removed"
	LifecycleActionQualityRemoved = "quality_removed"
)

// LifecycleEvent records one lifecycle decision taken on a deal.
type LifecycleEvent struct {
	ID         string    `json:"id"`
	DealID     string    `json:"deal_id"`
	Action     string    `json:"action"`
	Reason     string    `json:"reason,omitempty"`
	Issues     []string  `json:"issues,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	LifecycleStreamName     = "DEAL_LIFECYCLE"
	LifecycleStreamSubject  = "deals.lifecycle"
	LifecycleConsumerName   = "lifecycle-audit"
	LifecycleStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
