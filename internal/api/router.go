// Package api exposes the pricing service over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/priceforge/internal/pricing"
	"github.com/roach88/priceforge/internal/store"
)

// NewRouter builds the HTTP routes:
//
//	GET  /
//	POST /pricing/calculate
//	GET  /pricing/runs?sku=
//	GET  /pricing/runs/:id
//	POST /pricing/runs/:id/validate
//	GET  /pricing/runs/:id/replay
//	GET  /products
//	POST /products
func NewRouter(svc *pricing.Service, st *store.Store, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{svc: svc, store: st, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "PriceForge API up & running"})
	})

	pr := r.Group("/pricing")
	pr.POST("/calculate", h.calculate)
	pr.GET("/runs", h.listRuns)
	pr.GET("/runs/:id", h.getRun)
	pr.POST("/runs/:id/validate", h.validateRun)
	pr.GET("/runs/:id/replay", h.replayRun)

	r.GET("/products", h.listProducts)
	r.POST("/products", h.createProduct)

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
