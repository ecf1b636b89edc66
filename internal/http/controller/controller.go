package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
)

// Controller handles general HTTP requests.
type Controller struct{}

// New creates a new Controller.
func New() *Controller {
	return &Controller{}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// respondError maps an operation error to its HTTP status.
func respondError(c *gin.Context, err error) {
	var validationErr *model.ValidationError
	var uniqueErr *repository.UniqueConstraintError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &uniqueErr):
		c.JSON(http.StatusConflict, gin.H{"error": "product already exists"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	default:
		slog.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
