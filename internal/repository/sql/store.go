package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iyhunko/barcode-pricing/internal/repository"
)

// Store provides the SQL repositories, optionally bound to a transaction.
type Store struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewStore creates a new Store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Products returns the product repository bound to the store's executor.
func (s *Store) Products() repository.ProductRepository {
	return &ProductRepository{db: s.db, txn: s.txn}
}

// Events returns the event repository bound to the store's executor.
func (s *Store) Events() repository.EventRepository {
	return &EventRepository{db: s.db, txn: s.txn}
}

// WithinTransaction executes fn within a database transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.txn != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.NewStorageError("failed to begin transaction", err)
	}

	// Execute the function with the transactional store
	if err := fn(&Store{db: s.db, txn: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return repository.NewStorageError("failed to commit transaction", err)
	}

	return nil
}
