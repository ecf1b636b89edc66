package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/model"
)

var (
	// ErrInvalidPaginationToken is returned when a pagination token cannot be decoded.
	ErrInvalidPaginationToken = errors.New("token is invalid")
)

const (
	// DefaultPaginationLimit is the default number of items per page.
	DefaultPaginationLimit = 10
	maxPaginationLimit     = 100

	tokenSeparator = ","
)

// Paginator is the listing cursor: the sort key of the last product already served.
// Pages are ordered by (created_at DESC, barcode DESC).
type Paginator struct {
	LastBarcode   string
	LastCreatedAt time.Time
}

// PaginatorAfter returns the cursor of the page following product.
func PaginatorAfter(product *model.Product) Paginator {
	return Paginator{
		LastBarcode:   product.Barcode,
		LastCreatedAt: product.CreatedAt,
	}
}

// Encode returns the cursor as a token safe to pass in a query string.
func (p Paginator) Encode() string {
	key := p.LastCreatedAt.UTC().Format(time.RFC3339Nano) + tokenSeparator + p.LastBarcode
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodePageToken parses a token produced by Encode.
func DecodePageToken(encodedToken string) (*Paginator, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encodedToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 token: %w", err)
	}

	// barcodes are free-form, so only the first separator counts
	createdAt, barcode, found := strings.Cut(string(raw), tokenSeparator)
	if !found || barcode == "" {
		return nil, fmt.Errorf("invalid token format: %w", ErrInvalidPaginationToken)
	}

	lastCreatedAt, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token timestamp: %w", err)
	}

	return &Paginator{
		LastBarcode:   barcode,
		LastCreatedAt: lastCreatedAt,
	}, nil
}
