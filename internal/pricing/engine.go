package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/metrics"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
	"github.com/shopspring/decimal"
)

// Engine keeps the current exchange rate and re-rates stored products.
type Engine struct {
	store repository.Store
	now   func() time.Time

	mu   sync.RWMutex
	rate decimal.Decimal
}

// NewEngine creates an Engine whose current rate starts at defaultRate.
func NewEngine(store repository.Store, defaultRate decimal.Decimal) (*Engine, error) {
	if err := ValidateRate(defaultRate); err != nil {
		return nil, fmt.Errorf("invalid default exchange rate: %w", err)
	}
	return &Engine{
		store: store,
		now:   time.Now,
		rate:  defaultRate,
	}, nil
}

// CurrentRate returns the rate applied to products created without an explicit rate.
func (e *Engine) CurrentRate() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rate
}

func (e *Engine) setRate(rate decimal.Decimal) {
	e.mu.Lock()
	e.rate = rate
	e.mu.Unlock()
}

// UpdateExchangeRateForAll re-rates every product present when the sweep starts.
//
// Each product is updated in its own transaction, so the sweep is not atomic across
// the catalog: a concurrent write may win over a sweep step or be overwritten by it,
// and a product created during the sweep may keep the previous rate. Products
// deleted before their step are skipped. The returned count is the number of
// products this sweep updated. The current rate changes only once the barcode
// snapshot is taken. On a storage failure the sweep stops and returns the count
// reached so far together with the error.
func (e *Engine) UpdateExchangeRateForAll(ctx context.Context, newRate decimal.Decimal) (int, error) {
	if err := ValidateRate(newRate); err != nil {
		return 0, err
	}

	startedAt := e.now().UTC().Truncate(time.Microsecond)

	barcodes, err := e.store.Products().ListBarcodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products for repricing: %w", err)
	}
	e.setRate(newRate)

	slog.Info("exchange rate sweep started",
		slog.String("exchange_rate", newRate.String()),
		slog.Int("products", len(barcodes)))

	updated := 0
	for _, barcode := range barcodes {
		err := e.store.WithinTransaction(ctx, func(tx repository.Store) error {
			product, err := tx.Products().Update(ctx, barcode, func(p *model.Product) error {
				p.ExchangeRate = newRate
				if err := Reprice(p); err != nil {
					return err
				}
				p.UpdatedAt = startedAt
				return nil
			})
			if err != nil {
				return err
			}

			event, err := model.NewProductEvent(model.EventProductRepriced, product)
			if err != nil {
				return err
			}
			return tx.Events().Create(ctx, event)
		})
		if errors.Is(err, repository.ErrNotFound) {
			slog.Debug("product removed during sweep", slog.String("barcode", barcode))
			continue
		}
		if err != nil {
			slog.Error("exchange rate sweep aborted",
				slog.String("barcode", barcode),
				slog.Int("updated", updated),
				slog.Any("err", err))
			metrics.ProductsRepriced.Add(float64(updated))
			return updated, fmt.Errorf("failed to reprice product %s: %w", barcode, err)
		}
		updated++
	}

	metrics.ProductsRepriced.Add(float64(updated))
	metrics.ExchangeRateSweeps.Inc()
	metrics.SweepDuration.Observe(e.now().Sub(startedAt).Seconds())
	metrics.CurrentExchangeRate.Set(newRate.InexactFloat64())

	slog.Info("exchange rate sweep finished",
		slog.String("exchange_rate", newRate.String()),
		slog.Int("updated", updated))

	return updated, nil
}
