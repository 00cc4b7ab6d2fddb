// Package notify fans processing-progress events out to interested parties.
// Delivery is fire-and-forget by design: a lost progress event is acceptable,
// a blocked pipeline is not.
package notify

import (
	"context"
	"time"

	"veridoc/internal/domain"
)

// Event is one progress update emitted at a pipeline stage boundary.
type Event struct {
	DocumentID   string                  `json:"document_id"`
	Phase        string                  `json:"phase"`
	Message      string                  `json:"message"`
	Status       domain.ProcessingStatus `json:"processing_status"`
	FileName     string                  `json:"file_name"`
	Owner        string                  `json:"owner"`
	DocumentType domain.DocumentType     `json:"document_type"`
	Confidence   float64                 `json:"confidence"`
	Timestamp    time.Time               `json:"timestamp"`
}

// Notifier accepts progress events. Implementations must never block the
// caller for long and must swallow their own delivery failures.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Sink is where a background worker hands events for actual delivery.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Discard is a Notifier that drops every event. Useful default for tests and
// for deployments without a progress channel.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
