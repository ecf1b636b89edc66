// Package pricing derives secondary-currency prices and re-rates the catalog.
package pricing

import (
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/shopspring/decimal"
)

// Derive returns the secondary-currency price for a reference price at the given rate.
// The exact product is floored, so the result never exceeds it. Products that do not
// fit an int64 fail with a model.ValidationError.
func Derive(priceReference, exchangeRate decimal.Decimal) (int64, error) {
	if err := model.ValidateConvertible(priceReference, exchangeRate); err != nil {
		return 0, err
	}
	return priceReference.Mul(exchangeRate).Floor().IntPart(), nil
}

// Reprice recomputes the derived price of the product from its stored fields.
// The product is left unchanged when the price cannot be derived.
func Reprice(product *model.Product) error {
	converted, err := Derive(product.PriceReference, product.ExchangeRate)
	if err != nil {
		return err
	}
	product.PriceConverted = converted
	return nil
}

// ValidateRate checks that an exchange rate can be applied.
func ValidateRate(rate decimal.Decimal) error {
	return model.ValidateExchangeRate(rate)
}
