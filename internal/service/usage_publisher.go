package service

import (
	"context"
	"encoding/json"
	"fmt"

	"captia/internal/model"
	"captia/internal/pubsub"
)

const usageEventName = "summary.generated"

// UsageRecorder emits usage events after a summary has been counted.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, event model.UsageEvent) error
}

type usageEventPublisher struct {
	publisher pubsub.Publisher
	topic     string
}

// NewUsageEventPublisher creates a UsageRecorder that publishes JSON events to topic.
func NewUsageEventPublisher(publisher pubsub.Publisher, topic string) UsageRecorder {
	return &usageEventPublisher{publisher: publisher, topic: topic}
}

func (p *usageEventPublisher) RecordUsage(ctx context.Context, event model.UsageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal usage event: %w", err)
	}
	attrs := map[string]string{"event": usageEventName, "userId": event.UserID}
	if _, err := p.publisher.Publish(ctx, p.topic, payload, attrs); err != nil {
		return err
	}
	return nil
}
