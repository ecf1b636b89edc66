// Package memory provides an in-process implementation of the repository interfaces.
// It keeps no state across restarts and is meant for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
)

const btreeDegree = 32

// orderKey orders products by (created_at, barcode).
type orderKey struct {
	createdAt time.Time
	barcode   string
}

func lessOrderKey(a, b orderKey) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.barcode < b.barcode
}

// Store is a repository.Store kept in memory.
// Every repository call is atomic under a single lock. There is no rollback, so
// WithinTransaction only groups calls and does not undo them on error.
type Store struct {
	mu       sync.RWMutex
	products map[string]*model.Product
	order    *btree.BTreeG[orderKey]
	events   []*model.Event
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]*model.Product),
		order:    btree.NewG[orderKey](btreeDegree, lessOrderKey),
	}
}

// Products returns the product repository of the store.
func (s *Store) Products() repository.ProductRepository {
	return &ProductRepository{store: s}
}

// Events returns the event repository of the store.
func (s *Store) Events() repository.EventRepository {
	return &EventRepository{store: s}
}

// WithinTransaction runs fn against the store itself.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

func cloneProduct(p *model.Product) *model.Product {
	c := *p
	return &c
}

func cloneEvent(e *model.Event) *model.Event {
	c := *e
	c.EventData = append([]byte(nil), e.EventData...)
	if e.ProcessedAt != nil {
		processedAt := *e.ProcessedAt
		c.ProcessedAt = &processedAt
	}
	return &c
}
