package memory_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
	"github.com/iyhunko/barcode-pricing/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newProduct(barcode string, createdAt time.Time) *model.Product {
	return &model.Product{
		Barcode:        barcode,
		Name:           "Product " + barcode,
		PriceReference: decimal.RequireFromString("7.56"),
		ExchangeRate:   decimal.NewFromInt(89500),
		PriceConverted: 676620,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestProductRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Products()

	product := newProduct("8000500310427", time.Time{})
	require.NoError(t, repo.Create(ctx, product))
	assert.False(t, product.CreatedAt.IsZero())

	found, err := repo.FindByBarcode(ctx, "8000500310427")
	require.NoError(t, err)
	assert.Equal(t, product, found)

	// returned products are copies
	found.Name = "changed"
	again, err := repo.FindByBarcode(ctx, "8000500310427")
	require.NoError(t, err)
	assert.Equal(t, "Product 8000500310427", again.Name)
}

func TestProductRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Products()

	require.NoError(t, repo.Create(ctx, newProduct("1", baseTime)))

	duplicate := newProduct("1", baseTime.Add(time.Minute))
	duplicate.Name = "Other"
	err := repo.Create(ctx, duplicate)

	var uniqueErr *repository.UniqueConstraintError
	require.True(t, errors.As(err, &uniqueErr))

	stored, err := repo.FindByBarcode(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Product 1", stored.Name)
	assert.True(t, stored.CreatedAt.Equal(baseTime))
}

func TestProductRepository_FindByBarcode_NotFound(t *testing.T) {
	product, err := memory.NewStore().Products().FindByBarcode(context.Background(), "missing")
	assert.Nil(t, product)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductRepository_ListPagination(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Products()

	// two products share a timestamp to exercise the barcode tie-break
	require.NoError(t, repo.Create(ctx, newProduct("a", baseTime)))
	require.NoError(t, repo.Create(ctx, newProduct("b", baseTime.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, newProduct("c", baseTime.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, newProduct("d", baseTime.Add(2*time.Second))))

	var seen []string
	query := repository.Query{Limit: 3}
	for {
		page, err := repo.List(ctx, query)
		require.NoError(t, err)
		for _, p := range page {
			seen = append(seen, p.Barcode)
		}
		if len(page) < query.Limit {
			break
		}
		last := page[len(page)-1]
		query.Paginator = &repository.Paginator{LastBarcode: last.Barcode, LastCreatedAt: last.CreatedAt}
	}

	assert.Equal(t, []string{"d", "c", "b", "a"}, seen)

	barcodes, err := repo.ListBarcodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, seen, barcodes)
}

func TestProductRepository_ListEmpty(t *testing.T) {
	products, err := memory.NewStore().Products().List(context.Background(), repository.Query{})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Products()
	require.NoError(t, repo.Create(ctx, newProduct("1", baseTime)))

	t.Run("applies mutation", func(t *testing.T) {
		updated, err := repo.Update(ctx, "1", func(p *model.Product) error {
			p.Weight = "100g"
			p.Barcode = "2"
			p.CreatedAt = time.Time{}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "1", updated.Barcode)
		assert.Equal(t, "100g", updated.Weight)
		assert.True(t, updated.CreatedAt.Equal(baseTime))

		stored, err := repo.FindByBarcode(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "100g", stored.Weight)
	})

	t.Run("mutation error leaves product untouched", func(t *testing.T) {
		_, err := repo.Update(ctx, "1", func(p *model.Product) error {
			p.Weight = "lost"
			return errors.New("rejected")
		})
		require.Error(t, err)

		stored, err := repo.FindByBarcode(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "100g", stored.Weight)
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := repo.Update(ctx, "missing", func(p *model.Product) error { return nil })
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestProductRepository_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Products()
	product := newProduct("1", baseTime)
	product.PriceConverted = 0
	require.NoError(t, repo.Create(ctx, product))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "1", func(p *model.Product) error {
				p.PriceConverted++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.FindByBarcode(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), stored.PriceConverted)
}

func TestProductRepository_DeleteByBarcode(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Products()
	require.NoError(t, repo.Create(ctx, newProduct("1", baseTime)))

	deleted, err := repo.DeleteByBarcode(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", deleted.Barcode)

	_, err = repo.FindByBarcode(ctx, "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	barcodes, err := repo.ListBarcodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, barcodes)

	_, err = repo.DeleteByBarcode(ctx, "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// the barcode can be reused after deletion
	require.NoError(t, repo.Create(ctx, newProduct("1", baseTime.Add(time.Hour))))
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Events()

	for i := range 3 {
		event := &model.Event{
			EventType: model.EventProductCreated,
			EventData: json.RawMessage(fmt.Sprintf(`{"barcode":"%d"}`, i)),
		}
		require.NoError(t, repo.Create(ctx, event))
		assert.Equal(t, model.EventStatusPending, event.Status)
	}

	pending, err := repo.ListPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.JSONEq(t, `{"barcode":"0"}`, string(pending[0].EventData))

	require.NoError(t, repo.UpdateStatus(ctx, pending[0].ID, model.EventStatusProcessed))
	require.NoError(t, repo.UpdateStatus(ctx, pending[1].ID, model.EventStatusFailed))

	pending, err = repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.JSONEq(t, `{"barcode":"2"}`, string(pending[0].EventData))

	err = repo.UpdateStatus(ctx, model.Event{}.ID, model.EventStatusProcessed)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_WithinTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	err := store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Create(ctx, newProduct("1", baseTime)); err != nil {
			return err
		}
		event, err := model.NewProductEvent(model.EventProductCreated, newProduct("1", baseTime))
		if err != nil {
			return err
		}
		return tx.Events().Create(ctx, event)
	})
	require.NoError(t, err)

	_, err = store.Products().FindByBarcode(ctx, "1")
	require.NoError(t, err)
	pending, err := store.Events().ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = store.WithinTransaction(cancelled, func(tx repository.Store) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
