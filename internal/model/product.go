package model

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Storage limits of the monetary columns. Values outside them are rejected instead
// of being rounded by the database, so the derived price always matches the stored inputs.
const (
	PriceReferenceScale = 4
	ExchangeRateScale   = 6
)

var (
	// priceReferenceLimit and exchangeRateLimit are exclusive upper bounds.
	priceReferenceLimit = decimal.New(1, 10)
	exchangeRateLimit   = decimal.New(1, 8)
	maxPriceConverted   = decimal.NewFromInt(math.MaxInt64)
)

// Product represents a sellable item identified by its barcode.
// PriceConverted is derived from PriceReference and ExchangeRate and is never set by callers.
type Product struct {
	Barcode        string
	Name           string
	PriceReference decimal.Decimal
	Weight         string
	ExchangeRate   decimal.Decimal
	PriceConverted int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InitMeta initializes the product timestamps.
// Timestamps are truncated to microseconds to match the precision of the database.
func (p *Product) InitMeta() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	p.CreatedAt = now
	p.UpdatedAt = now
}

// Validate checks the stored fields of the product.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Barcode) == "" {
		return NewValidationError("barcode", "must not be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if err := ValidatePriceReference(p.PriceReference); err != nil {
		return err
	}
	if err := ValidateExchangeRate(p.ExchangeRate); err != nil {
		return err
	}
	return ValidateConvertible(p.PriceReference, p.ExchangeRate)
}

// ValidatePriceReference checks that price is non-negative and fits the stored scale and range.
func ValidatePriceReference(price decimal.Decimal) error {
	if price.IsNegative() {
		return NewValidationError("price_reference", "must not be negative")
	}
	if !price.Equal(price.Truncate(PriceReferenceScale)) {
		return NewValidationError("price_reference", "must have at most 4 decimal places")
	}
	if !price.LessThan(priceReferenceLimit) {
		return NewValidationError("price_reference", "must be less than "+priceReferenceLimit.String())
	}
	return nil
}

// ValidateExchangeRate checks that rate is positive and fits the stored scale and range.
func ValidateExchangeRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return NewValidationError("exchange_rate", "must be positive")
	}
	if !rate.Equal(rate.Truncate(ExchangeRateScale)) {
		return NewValidationError("exchange_rate", "must have at most 6 decimal places")
	}
	if !rate.LessThan(exchangeRateLimit) {
		return NewValidationError("exchange_rate", "must be less than "+exchangeRateLimit.String())
	}
	return nil
}

// ValidateConvertible checks that the floored product of price and rate fits an int64.
func ValidateConvertible(price, rate decimal.Decimal) error {
	if price.Mul(rate).Floor().GreaterThan(maxPriceConverted) {
		return NewValidationError("price_converted", "exceeds the supported range")
	}
	return nil
}

// ProductSnapshot is the serialized state of a product carried by outbox events.
type ProductSnapshot struct {
	Barcode        string          `json:"barcode"`
	Name           string          `json:"name"`
	PriceReference decimal.Decimal `json:"price_reference"`
	Weight         string          `json:"weight"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	PriceConverted int64           `json:"price_converted"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Snapshot returns the event representation of the product.
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		Barcode:        p.Barcode,
		Name:           p.Name,
		PriceReference: p.PriceReference,
		Weight:         p.Weight,
		ExchangeRate:   p.ExchangeRate,
		PriceConverted: p.PriceConverted,
		UpdatedAt:      p.UpdatedAt,
	}
}
