package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/metrics"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
	"github.com/iyhunko/barcode-pricing/internal/sqs"
)

const outboxBatchSize = 100

// MessagePublisher delivers product messages to subscribers.
type MessagePublisher interface {
	PublishProductMessage(ctx context.Context, msg sqs.ProductMessage) error
}

// OutboxWorker polls the events table and publishes pending events.
type OutboxWorker struct {
	events    repository.EventRepository
	publisher MessagePublisher
	interval  time.Duration
	stopChan  chan struct{}
}

// NewOutboxWorker creates a new OutboxWorker
func NewOutboxWorker(events repository.EventRepository, publisher MessagePublisher, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		events:    events,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start processes events every interval until ctx is done or Stop is called.
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("outbox worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessPending(ctx)
		}
	}
}

// Stop stops the outbox worker
func (w *OutboxWorker) Stop() {
	close(w.stopChan)
}

// ProcessPending publishes one batch of pending events and returns how many were published.
// Events that cannot be published are marked failed and not retried.
func (w *OutboxWorker) ProcessPending(ctx context.Context) int {
	events, err := w.events.ListPending(ctx, outboxBatchSize)
	if err != nil {
		slog.Error("failed to retrieve pending events", slog.Any("err", err))
		return 0
	}

	if len(events) == 0 {
		return 0
	}

	slog.Debug("processing pending events", slog.Int("count", len(events)))

	published := 0
	for _, event := range events {
		status := model.EventStatusProcessed
		if err := w.publish(ctx, event); err != nil {
			slog.Error("failed to publish event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.Any("err", err))
			status = model.EventStatusFailed
		} else {
			published++
		}

		metrics.OutboxEvents.WithLabelValues(string(status)).Inc()
		if err := w.events.UpdateStatus(ctx, event.ID, status); err != nil {
			slog.Error("failed to update event status",
				slog.String("event_id", event.ID.String()),
				slog.String("status", string(status)),
				slog.Any("err", err))
		}
	}

	return published
}

func (w *OutboxWorker) publish(ctx context.Context, event *model.Event) error {
	msg, err := sqs.NewProductMessage(event)
	if err != nil {
		return err
	}
	if err := w.publisher.PublishProductMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType, err)
	}
	return nil
}
