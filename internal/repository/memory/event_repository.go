package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
)

// EventRepository implements repository.EventRepository on top of a Store.
type EventRepository struct {
	store *Store
}

// Create appends a new event to the outbox.
func (r *EventRepository) Create(_ context.Context, event *model.Event) error {
	event.InitMeta()

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, cloneEvent(event))
	return nil
}

// ListPending returns the oldest pending events in insertion order.
func (r *EventRepository) ListPending(_ context.Context, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*model.Event
	for _, event := range s.events {
		if len(events) == limit {
			break
		}
		if event.Status == model.EventStatusPending {
			events = append(events, cloneEvent(event))
		}
	}
	return events, nil
}

// UpdateStatus sets the status of an event and stamps its processing time.
func (r *EventRepository) UpdateStatus(_ context.Context, eventID uuid.UUID, status model.EventStatus) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range s.events {
		if event.ID == eventID {
			processedAt := time.Now().UTC()
			event.Status = status
			event.ProcessedAt = &processedAt
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", eventID, repository.ErrNotFound)
}
