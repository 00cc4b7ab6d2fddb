// Package kafka publishes processing-progress events to a Kafka topic so
// other services (dashboards, the originating platform) can follow document
// progress without polling.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"veridoc/internal/notify"
)

// Publisher writes events keyed by document ID so all updates for one
// document land in the same partition, in order.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

var _ notify.Sink = (*Publisher)(nil)

// NewPublisher connects to the given brokers. The producer is asynchronous;
// produce errors surface in the callback and are logged, not returned.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Deliver publishes one event. Only marshalling fails synchronously; broker
// errors are logged from the produce callback and the event is dropped,
// matching the fire-and-forget contract of the notify package.
func (p *Publisher) Deliver(ctx context.Context, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.DocumentID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.Warn("kafka produce failed",
				"topic", p.topic,
				"document_id", event.DocumentID,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
