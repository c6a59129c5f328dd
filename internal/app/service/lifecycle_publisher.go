package service

import (
	"encoding/json"
	"time"

	"github.com/dealsphere/dealsphere/internal/app/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// EventPublisher emits deal lifecycle events. Implementations must be safe
// for concurrent use; publish failures are the caller's to log, lifecycle
// decisions never depend on delivery.
type EventPublisher interface {
	Publish(dealID, action, reason string, issues []string) error
}

// LifecyclePublisher publishes lifecycle events to NATS JetStream.
type LifecyclePublisher struct {
	js nats.JetStreamContext
}

// NewLifecyclePublisher creates a JetStream-backed lifecycle publisher.
func NewLifecyclePublisher(js nats.JetStreamContext) *LifecyclePublisher {
	return &LifecyclePublisher{js: js}
}

// Publish emits one lifecycle event on the deals lifecycle subject.
func (p *LifecyclePublisher) Publish(dealID, action, reason string, issues []string) error {
	event := model.LifecycleEvent{
		ID:         uuid.New().String(),
		DealID:     dealID,
		Action:     action,
		Reason:     reason,
		Issues:     issues,
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.LifecycleStreamSubject, data)
	return err
}
