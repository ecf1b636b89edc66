package sql

import (
	"context"
	"database/sql"
)

// dbExecutor is satisfied by both *sql.DB and *sql.Tx, so repositories run the
// same statements inside and outside a transaction.
type dbExecutor interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
