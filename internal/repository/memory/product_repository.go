package memory

import (
	"context"
	"fmt"

	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
)

// ProductRepository implements repository.ProductRepository on top of a Store.
// Returned products are copies and may be modified freely by the caller.
type ProductRepository struct {
	store *Store
}

// Create stores a new product. An existing barcode is never overwritten.
func (r *ProductRepository) Create(_ context.Context, product *model.Product) error {
	if product.CreatedAt.IsZero() {
		product.InitMeta()
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.Barcode]; ok {
		return &repository.UniqueConstraintError{
			Detail: fmt.Sprintf("Key (barcode)=(%s) already exists.", product.Barcode),
		}
	}

	s.products[product.Barcode] = cloneProduct(product)
	s.order.ReplaceOrInsert(orderKey{createdAt: product.CreatedAt, barcode: product.Barcode})
	return nil
}

// FindByBarcode returns the product stored under barcode.
func (r *ProductRepository) FindByBarcode(_ context.Context, barcode string) (*model.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[barcode]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", barcode, repository.ErrNotFound)
	}
	return cloneProduct(product), nil
}

// List returns a page of products, newest first.
func (r *ProductRepository) List(_ context.Context, query repository.Query) ([]*model.Product, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]*model.Product, 0, min(limit, s.order.Len()))
	collect := func(key orderKey) bool {
		products = append(products, cloneProduct(s.products[key.barcode]))
		return len(products) < limit
	}

	if query.Paginator == nil {
		s.order.Descend(collect)
		return products, nil
	}

	pivot := orderKey{createdAt: query.Paginator.LastCreatedAt, barcode: query.Paginator.LastBarcode}
	s.order.DescendLessOrEqual(pivot, func(key orderKey) bool {
		if !lessOrderKey(key, pivot) {
			// the cursor row itself was returned on the previous page
			return true
		}
		return collect(key)
	})
	return products, nil
}

// ListBarcodes returns every stored barcode, newest first.
func (r *ProductRepository) ListBarcodes(_ context.Context) ([]string, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	barcodes := make([]string, 0, s.order.Len())
	s.order.Descend(func(key orderKey) bool {
		barcodes = append(barcodes, key.barcode)
		return true
	})
	return barcodes, nil
}

// Update applies mutate to a copy of the product and stores it while holding the store lock.
// mutate must not call back into the store.
func (r *ProductRepository) Update(_ context.Context, barcode string, mutate func(product *model.Product) error) (*model.Product, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[barcode]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", barcode, repository.ErrNotFound)
	}

	product := cloneProduct(current)
	if err := mutate(product); err != nil {
		return nil, err
	}
	product.Barcode = current.Barcode
	product.CreatedAt = current.CreatedAt

	s.products[barcode] = cloneProduct(product)
	return product, nil
}

// DeleteByBarcode removes the product and returns its last state.
func (r *ProductRepository) DeleteByBarcode(_ context.Context, barcode string) (*model.Product, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[barcode]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", barcode, repository.ErrNotFound)
	}

	delete(s.products, barcode)
	s.order.Delete(orderKey{createdAt: product.CreatedAt, barcode: barcode})
	return product, nil
}
