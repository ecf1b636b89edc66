package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/barcode-pricing/internal/service"
	"github.com/shopspring/decimal"
)

// LegacyController serves the routes of the first scanner client,
// which names the two currencies USD and LBP.
type LegacyController struct {
	productService *service.ProductService
}

// NewLegacyController creates a new LegacyController with the given product service.
func NewLegacyController(productService *service.ProductService) *LegacyController {
	return &LegacyController{
		productService: productService,
	}
}

// LegacyProductRequest represents the request body of the legacy create route.
type LegacyProductRequest struct {
	Barcode  string           `json:"barcode" binding:"required"`
	Name     string           `json:"name" binding:"required"`
	PriceUSD *decimal.Decimal `json:"priceUSD" binding:"required"`
	Weight   string           `json:"weight"`
}

// LegacyProductResponse represents the product as the legacy client expects it.
type LegacyProductResponse struct {
	Name         string  `json:"name"`
	PriceUSD     float64 `json:"priceUSD"`
	Weight       string  `json:"weight"`
	PriceLBP     string  `json:"priceLBP"`
	ExchangeRate float64 `json:"exchangeRate"`
}

// GetProduct handles the legacy HTTP GET request for a single product.
func (lc *LegacyController) GetProduct(c *gin.Context) {
	product, err := lc.productService.GetProduct(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LegacyProductResponse{
		Name:         product.Name,
		PriceUSD:     product.PriceReference.InexactFloat64(),
		Weight:       product.Weight,
		PriceLBP:     strconv.FormatInt(product.PriceConverted, 10),
		ExchangeRate: product.ExchangeRate.InexactFloat64(),
	})
}

// CreateProduct handles the legacy HTTP POST request for adding a product.
func (lc *LegacyController) CreateProduct(c *gin.Context) {
	var req LegacyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := lc.productService.CreateProduct(c.Request.Context(), service.CreateProductInput{
		Barcode:        req.Barcode,
		Name:           req.Name,
		PriceReference: req.PriceUSD,
		Weight:         req.Weight,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
