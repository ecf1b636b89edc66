package repository

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginator(t *testing.T) {
	t.Run("should fail empty token", func(t *testing.T) {
		// given
		pageToken := ""

		// when
		paginator, err := DecodePageToken(pageToken)

		// then
		assert.True(t, errors.Is(err, ErrInvalidPaginationToken))
		assert.Nil(t, paginator)
	})

	t.Run("should fail invalid token", func(t *testing.T) {
		// given
		pageToken := "querty123"

		// when
		paginator, err := DecodePageToken(pageToken)

		// then
		assert.Error(t, err)
		var corruptInputErr base64.CorruptInputError
		assert.True(t, errors.As(err, &corruptInputErr))
		assert.Nil(t, paginator)
	})

	t.Run("should fail token without barcode", func(t *testing.T) {
		// given
		pageToken := base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano) + ","))

		// when
		paginator, err := DecodePageToken(pageToken)

		// then
		assert.True(t, errors.Is(err, ErrInvalidPaginationToken))
		assert.Nil(t, paginator)
	})

	t.Run("should succeed", func(t *testing.T) {
		// given
		originalPaginator := Paginator{
			LastBarcode:   "8000500310427",
			LastCreatedAt: time.Now(),
		}

		// when
		encodedToken := originalPaginator.Encode()
		decodedPaginator, err := DecodePageToken(encodedToken)

		// then
		require.NoError(t, err)
		assert.Equal(t, originalPaginator.LastBarcode, decodedPaginator.LastBarcode)
		assert.True(t, originalPaginator.LastCreatedAt.Equal(decodedPaginator.LastCreatedAt))
	})

	t.Run("should keep commas inside barcode", func(t *testing.T) {
		// given
		originalPaginator := Paginator{
			LastBarcode:   "A,B",
			LastCreatedAt: time.Now(),
		}

		// when
		decodedPaginator, err := DecodePageToken(originalPaginator.Encode())

		// then
		require.NoError(t, err)
		assert.Equal(t, "A,B", decodedPaginator.LastBarcode)
	})

	t.Run("token is URL safe", func(t *testing.T) {
		// given
		paginator := Paginator{
			LastBarcode:   "??>>??",
			LastCreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC),
		}

		// when
		token := paginator.Encode()

		// then
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	})
}

func TestPaginatorAfter(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	product := &model.Product{Barcode: "8000500310427", CreatedAt: createdAt}

	paginator := PaginatorAfter(product)

	assert.Equal(t, "8000500310427", paginator.LastBarcode)
	assert.True(t, createdAt.Equal(paginator.LastCreatedAt))
}

func TestQuery_ApplyPagination(t *testing.T) {
	tests := []struct {
		name      string
		limit     int32
		wantLimit int
	}{
		{"default limit", 0, DefaultPaginationLimit},
		{"negative limit", -5, DefaultPaginationLimit},
		{"custom limit", 25, 25},
		{"clamped limit", 1000, maxPaginationLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := NewQuery()
			require.NoError(t, query.ApplyPagination(tt.limit, ""))
			assert.Equal(t, tt.wantLimit, query.Limit)
			assert.Nil(t, query.Paginator)
		})
	}

	t.Run("invalid token", func(t *testing.T) {
		query := NewQuery()
		err := query.ApplyPagination(10, "%%%")
		assert.EqualError(t, err, "invalid page token")
	})
}
