package cache

import (
	"context"

	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
)

type productRepository struct {
	next  repository.ProductRepository
	store *Store
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.next.Create(ctx, product)
}

// FindByBarcode serves the product from the cache and falls back to the wrapped
// repository, collapsing concurrent misses for the same barcode into one load.
func (r *productRepository) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	if r.store.evictions != nil {
		return r.next.FindByBarcode(ctx, barcode)
	}

	if product, ok := r.store.load(ctx, barcode); ok {
		return product, nil
	}

	v, err, _ := r.store.group.Do(cacheKey(barcode), func() (interface{}, error) {
		generation := r.store.generations.current(barcode)
		product, err := r.next.FindByBarcode(ctx, barcode)
		if err != nil {
			return nil, err
		}
		r.store.save(ctx, product, generation)
		return product, nil
	})
	if err != nil {
		return nil, err
	}

	// shared between concurrent callers
	product := *v.(*model.Product)
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	return r.next.List(ctx, query)
}

func (r *productRepository) ListBarcodes(ctx context.Context) ([]string, error) {
	return r.next.ListBarcodes(ctx)
}

func (r *productRepository) Update(ctx context.Context, barcode string, mutate func(product *model.Product) error) (*model.Product, error) {
	product, err := r.next.Update(ctx, barcode, mutate)
	if err != nil {
		return nil, err
	}
	r.store.invalidate(ctx, barcode)
	return product, nil
}

func (r *productRepository) DeleteByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	product, err := r.next.DeleteByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	r.store.invalidate(ctx, barcode)
	return product, nil
}
