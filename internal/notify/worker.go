package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Worker decouples pipeline progress from sink latency: Notify enqueues onto
// a bounded channel and returns immediately; Run drains the channel into the
// sink. When the channel is full the event is dropped and counted — no
// backpressure onto the pipeline.
type Worker struct {
	sink    Sink
	inbox   chan Event
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewWorker builds a Worker with the given queue capacity.
func NewWorker(sink Sink, capacity int, logger *slog.Logger) *Worker {
	if capacity <= 0 {
		capacity = 256
	}
	return &Worker{
		sink:   sink,
		inbox:  make(chan Event, capacity),
		logger: logger,
	}
}

var _ Notifier = (*Worker)(nil)

// Notify enqueues the event without blocking.
func (w *Worker) Notify(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case w.inbox <- event:
	default:
		w.dropped.Add(1)
		if w.logger != nil {
			w.logger.Warn("progress event dropped, queue full",
				"document_id", event.DocumentID,
				"phase", event.Phase,
			)
		}
	}
}

// Run delivers queued events until ctx is canceled. Sink failures are logged
// and the event is dropped; the worker keeps running.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Deliver(ctx, event); err != nil {
				w.dropped.Add(1)
				if w.logger != nil {
					w.logger.Warn("progress event delivery failed",
						"document_id", event.DocumentID,
						"phase", event.Phase,
						"error", err,
					)
				}
			}
		}
	}
}

// Dropped reports how many events were lost to a full queue or failed
// delivery since startup.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}
