package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
	"github.com/iyhunko/barcode-pricing/internal/service"
	"github.com/shopspring/decimal"
)

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService *service.ProductService
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService *service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// CreateProductRequest represents the request body for creating a product.
// Prices and rates accept JSON numbers or decimal strings.
type CreateProductRequest struct {
	Barcode        string           `json:"barcode" binding:"required"`
	Name           string           `json:"name" binding:"required"`
	PriceReference *decimal.Decimal `json:"price_reference" binding:"required"`
	Weight         string           `json:"weight"`
	ExchangeRate   *decimal.Decimal `json:"exchange_rate"`
}

// UpdateProductRequest represents the request body for a partial product update.
type UpdateProductRequest struct {
	Name           *string          `json:"name"`
	PriceReference *decimal.Decimal `json:"price_reference"`
	Weight         *string          `json:"weight"`
	ExchangeRate   *decimal.Decimal `json:"exchange_rate"`
}

// ProductResponse represents the response body for a product.
// Prices and rates are encoded as decimal strings.
type ProductResponse struct {
	Barcode        string          `json:"barcode"`
	Name           string          `json:"name"`
	PriceReference decimal.Decimal `json:"price_reference"`
	Weight         string          `json:"weight"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	PriceConverted int64           `json:"price_converted"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// CreateProduct handles the HTTP POST request for creating a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	createdProduct, err := pc.productService.CreateProduct(c.Request.Context(), service.CreateProductInput{
		Barcode:        req.Barcode,
		Name:           req.Name,
		PriceReference: req.PriceReference,
		Weight:         req.Weight,
		ExchangeRate:   req.ExchangeRate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProductResponse(createdProduct))
}

// GetProduct handles the HTTP GET request for a single product.
func (pc *ProductController) GetProduct(c *gin.Context) {
	product, err := pc.productService.GetProduct(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

// UpdateProduct handles the HTTP PATCH request for changing some fields of a product.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := pc.productService.UpdateProduct(c.Request.Context(), c.Param("barcode"), service.ProductPatch{
		Name:           req.Name,
		PriceReference: req.PriceReference,
		Weight:         req.Weight,
		ExchangeRate:   req.ExchangeRate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(updated))
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by barcode.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	if err := pc.productService.DeleteProduct(c.Request.Context(), c.Param("barcode")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "product deleted successfully"})
}

// ListProductsRequest represents the query parameters for listing products.
type ListProductsRequest struct {
	Limit int32  `form:"limit"`
	Token string `form:"token"`
}

// ListProductsResponse represents the response body for listing products.
type ListProductsResponse struct {
	Products      []ProductResponse `json:"products"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

// ListProducts handles the HTTP GET request for listing products with pagination.
func (pc *ProductController) ListProducts(c *gin.Context) {
	var req ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := repository.NewQuery()
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := pc.productService.ListProducts(c.Request.Context(), *query)
	if err != nil {
		respondError(c, err)
		return
	}

	response := ListProductsResponse{
		Products: make([]ProductResponse, 0, len(products)),
	}
	for _, product := range products {
		response.Products = append(response.Products, toProductResponse(product))
	}

	// a full page means there may be more
	if len(products) == query.Limit {
		response.NextPageToken = repository.PaginatorAfter(products[len(products)-1]).Encode()
	}

	c.JSON(http.StatusOK, response)
}

// ExchangeRateRequest represents the request body for changing the exchange rate.
type ExchangeRateRequest struct {
	ExchangeRate *decimal.Decimal `json:"exchange_rate" binding:"required"`
}

// GetExchangeRate handles the HTTP GET request for the current exchange rate.
func (pc *ProductController) GetExchangeRate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"exchange_rate": pc.productService.CurrentExchangeRate()})
}

// UpdateExchangeRate handles the HTTP PUT request that re-rates every product.
func (pc *ProductController) UpdateExchangeRate(c *gin.Context) {
	var req ExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := pc.productService.UpdateExchangeRateForAll(c.Request.Context(), *req.ExchangeRate)
	if err != nil {
		if updated > 0 {
			c.Header("X-Products-Updated", strconv.Itoa(updated))
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated":       updated,
		"exchange_rate": req.ExchangeRate,
	})
}

func toProductResponse(product *model.Product) ProductResponse {
	return ProductResponse{
		Barcode:        product.Barcode,
		Name:           product.Name,
		PriceReference: product.PriceReference,
		Weight:         product.Weight,
		ExchangeRate:   product.ExchangeRate,
		PriceConverted: product.PriceConverted,
		CreatedAt:      product.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      product.UpdatedAt.Format(time.RFC3339),
	}
}
