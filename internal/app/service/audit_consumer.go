package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dealsphere/dealsphere/internal/app/model"
	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// AuditConsumer consumes lifecycle events from NATS JetStream and writes
// them to the audit table so removals and flags stay reviewable.
type AuditConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.AuditRepository
}

// NewAuditConsumer creates a new lifecycle audit consumer.
func NewAuditConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.AuditRepository) *AuditConsumer {
	return &AuditConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream and durable consumer exist, then begins
// consuming in the background.
func (c *AuditConsumer) Start() error {
	_, err := c.js.StreamInfo(model.LifecycleStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.LifecycleStreamName,
			Subjects: []string{model.LifecycleStreamSubject},
			MaxBytes: model.LifecycleStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.LifecycleStreamName, model.LifecycleConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.LifecycleStreamName, &nats.ConsumerConfig{
			Durable:   model.LifecycleConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.LifecycleStreamSubject, model.LifecycleConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *AuditConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch lifecycle events", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.LifecycleEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to decode lifecycle event", zap.Error(err))
				msg.Ack()
				continue
			}

			record := &model.AuditEvent{
				ID:         event.ID,
				DealID:     event.DealID,
				Action:     event.Action,
				Reason:     event.Reason,
				Issues:     strings.Join(event.Issues, ","),
				OccurredAt: event.OccurredAt,
			}

			if err := c.repo.Create(ctx, record); err != nil {
				c.logger.Error("failed to store audit event",
					zap.String("id", event.ID),
					zap.String("deal_id", event.DealID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("lifecycle event stored",
				zap.String("id", event.ID),
				zap.String("deal_id", event.DealID),
				zap.String("action", event.Action),
			)

			msg.Ack()
		}
	}
}
