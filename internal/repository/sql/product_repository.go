package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
)

const productColumns = "barcode, name, price_reference, weight, exchange_rate, price_converted, created_at, updated_at"

// ProductRepository implements repository.ProductRepository on PostgreSQL.
type ProductRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *ProductRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var product model.Product
	err := row.Scan(
		&product.Barcode, &product.Name, &product.PriceReference, &product.Weight,
		&product.ExchangeRate, &product.PriceConverted, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a new product into the database.
// A barcode collision is reported as *repository.UniqueConstraintError.
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	// Only initialize metadata if not already set
	if product.CreatedAt.IsZero() {
		product.InitMeta()
	}

	query := `INSERT INTO products (` + productColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return repository.NewStorageError("failed to prepare insert statement", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		product.Barcode, product.Name, product.PriceReference, product.Weight,
		product.ExchangeRate, product.PriceConverted, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return translateError("failed to insert product", err)
	}

	return nil
}

// FindByBarcode retrieves a single product by barcode.
func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE barcode = $1`

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, repository.NewStorageError("failed to prepare select statement", err)
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", barcode, repository.ErrNotFound)
		}
		return nil, repository.NewStorageError("failed to query product", err)
	}

	return product, nil
}

// List retrieves products, newest first, based on the provided query.
func (r *ProductRepository) List(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + productColumns + " FROM products WHERE 1=1")

	var args []interface{}
	argIndex := 1

	// Apply pagination
	if query.Paginator != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND (created_at, barcode) < ($%d, $%d)", argIndex, argIndex+1))
		args = append(args, query.Paginator.LastCreatedAt, query.Paginator.LastBarcode)
		argIndex += 2
	}

	// Order by created_at DESC, barcode DESC for consistent pagination
	queryBuilder.WriteString(" ORDER BY created_at DESC, barcode DESC")

	// Apply limit
	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
	args = append(args, limit)

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, queryBuilder.String())
	if err != nil {
		return nil, repository.NewStorageError("failed to prepare select statement", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, repository.NewStorageError("failed to query products", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, repository.NewStorageError("failed to scan product", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, repository.NewStorageError("error iterating rows", err)
	}

	return products, nil
}

// ListBarcodes returns the barcodes of all stored products, newest first.
func (r *ProductRepository) ListBarcodes(ctx context.Context) ([]string, error) {
	query := `SELECT barcode FROM products ORDER BY created_at DESC, barcode DESC`

	executor := r.getExecutor()
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, repository.NewStorageError("failed to query barcodes", err)
	}
	defer rows.Close()

	var barcodes []string
	for rows.Next() {
		var barcode string
		if err := rows.Scan(&barcode); err != nil {
			return nil, repository.NewStorageError("failed to scan barcode", err)
		}
		barcodes = append(barcodes, barcode)
	}

	if err = rows.Err(); err != nil {
		return nil, repository.NewStorageError("error iterating rows", err)
	}

	return barcodes, nil
}

// Update locks the product row, applies mutate and writes the result back.
// Outside a transaction the read and the write run in a transaction of their own.
func (r *ProductRepository) Update(ctx context.Context, barcode string, mutate func(product *model.Product) error) (*model.Product, error) {
	if r.txn == nil {
		var updated *model.Product
		err := NewStore(r.db).WithinTransaction(ctx, func(tx repository.Store) error {
			var err error
			updated, err = tx.Products().Update(ctx, barcode, mutate)
			return err
		})
		return updated, err
	}

	selectQuery := `SELECT ` + productColumns + ` FROM products WHERE barcode = $1 FOR UPDATE`
	product, err := scanProduct(r.txn.QueryRowContext(ctx, selectQuery, barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", barcode, repository.ErrNotFound)
		}
		return nil, repository.NewStorageError("failed to lock product", err)
	}

	if err := mutate(product); err != nil {
		return nil, err
	}
	// the primary key is immutable
	product.Barcode = barcode

	updateQuery := `UPDATE products
	                SET name = $2, price_reference = $3, weight = $4, exchange_rate = $5, price_converted = $6, updated_at = $7
	                WHERE barcode = $1`
	_, err = r.txn.ExecContext(ctx, updateQuery,
		product.Barcode, product.Name, product.PriceReference, product.Weight,
		product.ExchangeRate, product.PriceConverted, product.UpdatedAt,
	)
	if err != nil {
		return nil, translateError("failed to update product", err)
	}

	return product, nil
}

// DeleteByBarcode deletes a product by barcode and returns the deleted row.
func (r *ProductRepository) DeleteByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	query := `DELETE FROM products WHERE barcode = $1 RETURNING ` + productColumns

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, repository.NewStorageError("failed to prepare delete statement", err)
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", barcode, repository.ErrNotFound)
		}
		return nil, repository.NewStorageError("failed to delete product", err)
	}

	return product, nil
}
