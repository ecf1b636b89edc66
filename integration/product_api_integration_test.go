package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/barcode-pricing/internal/http/controller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeProduct(t *testing.T, w *httptest.ResponseRecorder) controller.ProductResponse {
	t.Helper()

	var product controller.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	return product
}

func TestProductAPI_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	router := testDB.NewRouter(t)

	t.Run("create product successfully", func(t *testing.T) {
		testDB.TruncateTables(t)

		// when
		w := performRequest(t, router, http.MethodPost, "/products", map[string]any{
			"barcode":         "8000500310427",
			"name":            "Kinder Kinderini 100g",
			"price_reference": 7.56,
			"weight":          "100g",
		})

		// then
		require.Equal(t, http.StatusCreated, w.Code)
		product := decodeProduct(t, w)
		assert.Equal(t, "8000500310427", product.Barcode)
		assert.Equal(t, "89500", product.ExchangeRate.String())
		assert.Equal(t, int64(676620), product.PriceConverted)

		var pending int
		require.NoError(t, testDB.DB.QueryRow("SELECT COUNT(*) FROM events WHERE status = 'pending'").Scan(&pending))
		assert.Equal(t, 1, pending)
	})

	t.Run("create product with missing fields", func(t *testing.T) {
		testDB.TruncateTables(t)

		w := performRequest(t, router, http.MethodPost, "/products", map[string]any{"name": "No barcode"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("create product with negative price", func(t *testing.T) {
		testDB.TruncateTables(t)

		w := performRequest(t, router, http.MethodPost, "/products", map[string]any{
			"barcode":         "123",
			"name":            "Negative",
			"price_reference": -1,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var count int
		require.NoError(t, testDB.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("stored prices match the derived price", func(t *testing.T) {
		testDB.TruncateTables(t)

		// when
		rejected := performRequest(t, router, http.MethodPost, "/products", map[string]any{
			"barcode": "123", "name": "Too precise", "price_reference": "1.23456", "exchange_rate": 100000,
		})
		created := performRequest(t, router, http.MethodPost, "/products", map[string]any{
			"barcode": "124", "name": "At scale", "price_reference": "1.2345", "exchange_rate": 100000,
		})
		tooLarge := performRequest(t, router, http.MethodPost, "/products", map[string]any{
			"barcode": "125", "name": "Too large", "price_reference": "1000000000000000",
		})

		// then
		assert.Equal(t, http.StatusBadRequest, rejected.Code)
		assert.Equal(t, http.StatusBadRequest, tooLarge.Code)
		require.Equal(t, http.StatusCreated, created.Code)
		get := performRequest(t, router, http.MethodGet, "/products/124", nil)
		require.Equal(t, http.StatusOK, get.Code)
		stored := decodeProduct(t, get)
		assert.Equal(t, decodeProduct(t, created), stored)
		assert.Equal(t, int64(123450), stored.PriceConverted)
		assert.Equal(t, "1.2345", stored.PriceReference.String())
	})

	t.Run("create duplicate barcode", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		body := map[string]any{"barcode": "123", "name": "First", "price_reference": 1}
		require.Equal(t, http.StatusCreated, performRequest(t, router, http.MethodPost, "/products", body).Code)

		// when
		w := performRequest(t, router, http.MethodPost, "/products", map[string]any{
			"barcode": "123", "name": "Second", "price_reference": 2,
		})

		// then
		assert.Equal(t, http.StatusConflict, w.Code)
		get := performRequest(t, router, http.MethodGet, "/products/123", nil)
		assert.Equal(t, "First", decodeProduct(t, get).Name)
	})

	t.Run("update product re-derives the converted price", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		body := map[string]any{"barcode": "8000500310427", "name": "Kinder", "price_reference": 7.56}
		require.Equal(t, http.StatusCreated, performRequest(t, router, http.MethodPost, "/products", body).Code)

		// when
		w := performRequest(t, router, http.MethodPatch, "/products/8000500310427", map[string]any{
			"exchange_rate": 90000,
		})

		// then
		require.Equal(t, http.StatusOK, w.Code)
		product := decodeProduct(t, w)
		assert.Equal(t, "Kinder", product.Name)
		assert.Equal(t, int64(680400), product.PriceConverted)
	})

	t.Run("update unknown product", func(t *testing.T) {
		testDB.TruncateTables(t)

		w := performRequest(t, router, http.MethodPatch, "/products/missing", map[string]any{"name": "x"})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list products with pagination", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		for i := range 3 {
			body := map[string]any{
				"barcode":         fmt.Sprintf("barcode-%d", i),
				"name":            fmt.Sprintf("Product %d", i),
				"price_reference": 1,
			}
			require.Equal(t, http.StatusCreated, performRequest(t, router, http.MethodPost, "/products", body).Code)
		}

		// when
		first := performRequest(t, router, http.MethodGet, "/products?limit=2", nil)
		require.Equal(t, http.StatusOK, first.Code)
		var firstPage controller.ListProductsResponse
		require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstPage))

		second := performRequest(t, router, http.MethodGet, "/products?limit=2&token="+firstPage.NextPageToken, nil)
		require.Equal(t, http.StatusOK, second.Code)
		var secondPage controller.ListProductsResponse
		require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondPage))

		// then
		require.Len(t, firstPage.Products, 2)
		assert.NotEmpty(t, firstPage.NextPageToken)
		assert.Equal(t, "barcode-2", firstPage.Products[0].Barcode)
		require.Len(t, secondPage.Products, 1)
		assert.Equal(t, "barcode-0", secondPage.Products[0].Barcode)
		assert.Empty(t, secondPage.NextPageToken)
	})

	t.Run("list products when empty", func(t *testing.T) {
		testDB.TruncateTables(t)

		w := performRequest(t, router, http.MethodGet, "/products", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var page controller.ListProductsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Empty(t, page.Products)
		assert.Empty(t, page.NextPageToken)
	})

	t.Run("list products with invalid token", func(t *testing.T) {
		w := performRequest(t, router, http.MethodGet, "/products?token=not-a-token", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete product successfully", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		body := map[string]any{"barcode": "777", "name": "Doomed", "price_reference": 1}
		require.Equal(t, http.StatusCreated, performRequest(t, router, http.MethodPost, "/products", body).Code)

		// when
		w := performRequest(t, router, http.MethodDelete, "/products/777", nil)

		// then
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, http.StatusNotFound, performRequest(t, router, http.MethodGet, "/products/777", nil).Code)
	})

	t.Run("delete non-existent product", func(t *testing.T) {
		testDB.TruncateTables(t)

		w := performRequest(t, router, http.MethodDelete, "/products/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("legacy routes", func(t *testing.T) {
		testDB.TruncateTables(t)

		// when
		created := performRequest(t, router, http.MethodPost, "/api/product", map[string]any{
			"barcode": "8000500310427", "name": "Kinder", "priceUSD": 7.56, "weight": "100g",
		})
		get := performRequest(t, router, http.MethodGet, "/api/product/8000500310427", nil)

		// then
		assert.Equal(t, http.StatusOK, created.Code)
		require.Equal(t, http.StatusOK, get.Code)
		var legacy controller.LegacyProductResponse
		require.NoError(t, json.Unmarshal(get.Body.Bytes(), &legacy))
		assert.Equal(t, "676620", legacy.PriceLBP)
		assert.InDelta(t, 7.56, legacy.PriceUSD, 1e-9)
	})

	// the sweep moves the current rate of the shared router, so it runs last
	t.Run("exchange rate sweep", func(t *testing.T) {
		testDB.TruncateTables(t)

		// given
		for _, body := range []map[string]any{
			{"barcode": "8000500310427", "name": "Kinder", "price_reference": 7.56},
			{"barcode": "5000112637922", "name": "Water", "price_reference": 10},
		} {
			require.Equal(t, http.StatusCreated, performRequest(t, router, http.MethodPost, "/products", body).Code)
		}

		// when
		w := performRequest(t, router, http.MethodPut, "/exchange-rate", map[string]any{"exchange_rate": 90000})

		// then
		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.InDelta(t, 2, response["updated"], 0)
		assert.Equal(t, int64(900000), decodeProduct(t, performRequest(t, router, http.MethodGet, "/products/5000112637922", nil)).PriceConverted)
		assert.Equal(t, int64(680400), decodeProduct(t, performRequest(t, router, http.MethodGet, "/products/8000500310427", nil)).PriceConverted)
	})

	t.Run("exchange rate sweep rejects non-positive rate", func(t *testing.T) {
		w := performRequest(t, router, http.MethodPut, "/exchange-rate", map[string]any{"exchange_rate": 0})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
