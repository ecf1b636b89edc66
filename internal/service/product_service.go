package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/metrics"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/pricing"
	"github.com/iyhunko/barcode-pricing/internal/repository"
	"github.com/shopspring/decimal"
)

// CreateProductInput carries the fields accepted when creating a product.
// Nil pointers mean the field was not supplied.
type CreateProductInput struct {
	Barcode        string
	Name           string
	PriceReference *decimal.Decimal
	Weight         string
	ExchangeRate   *decimal.Decimal
}

// ProductPatch lists the fields to change on a product. Nil fields are left as they are.
type ProductPatch struct {
	Name           *string
	PriceReference *decimal.Decimal
	Weight         *string
	ExchangeRate   *decimal.Decimal
}

// ProductService implements the product operations on top of a repository.Store.
// Every write re-derives the converted price and records an outbox event in the
// same transaction.
type ProductService struct {
	store  repository.Store
	engine *pricing.Engine
	now    func() time.Time
}

func NewProductService(store repository.Store, engine *pricing.Engine) *ProductService {
	return &ProductService{
		store:  store,
		engine: engine,
		now:    time.Now,
	}
}

// CreateProduct validates the input, derives the converted price and stores the product.
// The exchange rate defaults to the current rate of the pricing engine.
func (ps *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*model.Product, error) {
	if input.PriceReference == nil {
		return nil, model.NewValidationError("price_reference", "is required")
	}

	rate := ps.engine.CurrentRate()
	if input.ExchangeRate != nil {
		rate = *input.ExchangeRate
	}

	now := ps.now().UTC().Truncate(time.Microsecond)
	product := &model.Product{
		Barcode:        normalizeBarcode(input.Barcode),
		Name:           input.Name,
		PriceReference: *input.PriceReference,
		Weight:         input.Weight,
		ExchangeRate:   rate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := pricing.Reprice(product); err != nil {
		return nil, err
	}

	err := ps.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		return recordEvent(ctx, tx, model.EventProductCreated, product)
	})
	if err != nil {
		return nil, err
	}

	metrics.ProductsCreated.Inc()
	slog.Debug("product created",
		slog.String("barcode", product.Barcode),
		slog.Int64("price_converted", product.PriceConverted))

	return product, nil
}

// GetProduct returns the product stored under barcode.
func (ps *ProductService) GetProduct(ctx context.Context, barcode string) (*model.Product, error) {
	return ps.store.Products().FindByBarcode(ctx, normalizeBarcode(barcode))
}

// ListProducts returns a page of products, newest first.
func (ps *ProductService) ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	return ps.store.Products().List(ctx, query)
}

// UpdateProduct applies the patch and re-derives the converted price, even when only
// fields unrelated to the price changed.
func (ps *ProductService) UpdateProduct(ctx context.Context, barcode string, patch ProductPatch) (*model.Product, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	barcode = normalizeBarcode(barcode)

	var updated *model.Product
	err := ps.store.WithinTransaction(ctx, func(tx repository.Store) error {
		product, err := tx.Products().Update(ctx, barcode, func(p *model.Product) error {
			patch.apply(p)
			if err := p.Validate(); err != nil {
				return err
			}
			if err := pricing.Reprice(p); err != nil {
				return err
			}
			p.UpdatedAt = ps.now().UTC().Truncate(time.Microsecond)
			return nil
		})
		if err != nil {
			return err
		}
		updated = product
		return recordEvent(ctx, tx, model.EventProductUpdated, product)
	})
	if err != nil {
		return nil, err
	}

	metrics.ProductsUpdated.Inc()
	return updated, nil
}

// DeleteProduct removes the product stored under barcode.
func (ps *ProductService) DeleteProduct(ctx context.Context, barcode string) error {
	barcode = normalizeBarcode(barcode)
	err := ps.store.WithinTransaction(ctx, func(tx repository.Store) error {
		product, err := tx.Products().DeleteByBarcode(ctx, barcode)
		if err != nil {
			return err
		}
		return recordEvent(ctx, tx, model.EventProductDeleted, product)
	})
	if err != nil {
		return err
	}

	metrics.ProductsDeleted.Inc()
	slog.Debug("product deleted", slog.String("barcode", barcode))
	return nil
}

// CurrentExchangeRate returns the rate applied to products created without a rate.
func (ps *ProductService) CurrentExchangeRate() decimal.Decimal {
	return ps.engine.CurrentRate()
}

// UpdateExchangeRateForAll re-rates every product and returns how many were updated.
func (ps *ProductService) UpdateExchangeRateForAll(ctx context.Context, rate decimal.Decimal) (int, error) {
	return ps.engine.UpdateExchangeRateForAll(ctx, rate)
}

// normalizeBarcode strips surrounding whitespace, so every operation addresses the
// same record for the same scanned code.
func normalizeBarcode(barcode string) string {
	return strings.TrimSpace(barcode)
}

func recordEvent(ctx context.Context, tx repository.Store, eventType string, product *model.Product) error {
	event, err := model.NewProductEvent(eventType, product)
	if err != nil {
		return err
	}
	return tx.Events().Create(ctx, event)
}

func (p ProductPatch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return model.NewValidationError("name", "must not be empty")
	}
	if p.PriceReference != nil {
		if err := model.ValidatePriceReference(*p.PriceReference); err != nil {
			return err
		}
	}
	if p.ExchangeRate != nil {
		if err := pricing.ValidateRate(*p.ExchangeRate); err != nil {
			return err
		}
	}
	return nil
}

func (p ProductPatch) apply(product *model.Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.PriceReference != nil {
		product.PriceReference = *p.PriceReference
	}
	if p.Weight != nil {
		product.Weight = *p.Weight
	}
	if p.ExchangeRate != nil {
		product.ExchangeRate = *p.ExchangeRate
	}
}
