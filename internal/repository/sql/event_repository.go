package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
)

// EventRepository implements repository.EventRepository on PostgreSQL.
type EventRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = "id, event_type, event_data, status, created_at, processed_at"

func (r *EventRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var event model.Event
	var processedAt sql.NullTime
	if err := row.Scan(&event.ID, &event.EventType, &event.EventData, &event.Status, &event.CreatedAt, &processedAt); err != nil {
		return nil, err
	}
	if processedAt.Valid {
		event.ProcessedAt = &processedAt.Time
	}
	return &event, nil
}

// Create assigns the event an id and stores it as pending.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	event.InitMeta()

	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return repository.NewStorageError("failed to prepare insert statement", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, event.ID, event.EventType, event.EventData, event.Status, event.CreatedAt, event.ProcessedAt)
	if err != nil {
		return repository.NewStorageError("failed to insert event", err)
	}

	return nil
}

// ListPending returns up to limit pending events, oldest first.
func (r *EventRepository) ListPending(ctx context.Context, limit int) ([]*model.Event, error) {
	sqlQuery := `SELECT ` + eventColumns + `
	             FROM events
	             WHERE status = $1
	             ORDER BY created_at ASC
	             LIMIT $2`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, sqlQuery)
	if err != nil {
		return nil, repository.NewStorageError("failed to prepare select statement", err)
	}
	defer stmt.Close()

	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}

	rows, err := stmt.QueryContext(ctx, model.EventStatusPending, limit)
	if err != nil {
		return nil, repository.NewStorageError("failed to query events", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, repository.NewStorageError("failed to scan event", err)
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, repository.NewStorageError("error iterating rows", err)
	}

	return events, nil
}

// UpdateStatus records the outcome of publishing an event and stamps processed_at.
func (r *EventRepository) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	query := `UPDATE events SET status = $1, processed_at = CURRENT_TIMESTAMP WHERE id = $2`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return repository.NewStorageError("failed to prepare update statement", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, status, eventID)
	if err != nil {
		return repository.NewStorageError("failed to update event status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return repository.NewStorageError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("event %s: %w", eventID, repository.ErrNotFound)
	}

	return nil
}
