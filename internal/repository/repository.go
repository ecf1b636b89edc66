package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/barcode-pricing/internal/model"
)

var (
	// ErrNotFound is returned when an operation targets a nonexistent resource.
	ErrNotFound = errors.New("resource not found")
)

// ProductRepository persists products keyed by barcode.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	List(ctx context.Context, query Query) ([]*model.Product, error)
	// ListBarcodes returns every stored barcode, newest first.
	ListBarcodes(ctx context.Context) ([]string, error)
	// Update loads the product, applies mutate and stores the result as one unit.
	// No other writer can interleave between the read and the write.
	Update(ctx context.Context, barcode string, mutate func(product *model.Product) error) (*model.Product, error)
	// DeleteByBarcode removes the product and returns its last state.
	DeleteByBarcode(ctx context.Context, barcode string) (*model.Product, error)
}

// EventRepository persists outbox events.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	ListPending(ctx context.Context, limit int) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error
}

// Store groups the repositories sharing a unit of work.
type Store interface {
	Products() ProductRepository
	Events() EventRepository
	// WithinTransaction runs fn against a store bound to a single transaction.
	// Nested calls reuse the outer transaction.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

// UniqueConstraintError represents a unique constraint violation (duplicate key).
type UniqueConstraintError struct {
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}

// StorageError reports that the backing store is unavailable or rejected an operation.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a StorageError for the given operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (s *StorageError) Error() string {
	return s.Op + ": " + s.Err.Error()
}

func (s *StorageError) Unwrap() error {
	return s.Err
}
