package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/barcode-pricing/internal/http/controller"
	"github.com/iyhunko/barcode-pricing/internal/http/middleware"
	"github.com/iyhunko/barcode-pricing/internal/service"
)

// InitRouter registers the middleware and every route of the product API on server.
func InitRouter(server *gin.Engine, productService *service.ProductService) *gin.Engine {
	server.Use(middleware.Recovery(), middleware.Logger(), middleware.CORS())

	ctr := controller.New()
	productCtr := controller.NewProductController(productService)
	legacyCtr := controller.NewLegacyController(productService)

	server.GET("/ping", ctr.Ping)

	// Product endpoints
	products := server.Group("/products")
	{
		products.POST("", productCtr.CreateProduct)
		products.GET("", productCtr.ListProducts)
		products.GET("/:barcode", productCtr.GetProduct)
		products.PATCH("/:barcode", productCtr.UpdateProduct)
		products.DELETE("/:barcode", productCtr.DeleteProduct)
	}

	// Exchange rate endpoints
	server.GET("/exchange-rate", productCtr.GetExchangeRate)
	server.PUT("/exchange-rate", productCtr.UpdateExchangeRate)

	// Routes kept for the first scanner client
	legacy := server.Group("/api/product")
	{
		legacy.GET("/:barcode", legacyCtr.GetProduct)
		legacy.POST("", legacyCtr.CreateProduct)
	}

	return server
}
