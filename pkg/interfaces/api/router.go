package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/application/services/costing"
	"github.com/vsinha/bomcheck/pkg/application/services/feasibility"
	"github.com/vsinha/bomcheck/pkg/application/services/production"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
	"github.com/vsinha/bomcheck/pkg/infrastructure/metrics"
	"github.com/vsinha/bomcheck/pkg/interfaces/api/middleware"
)

// Dependencies are the services the HTTP layer exposes
type Dependencies struct {
	Items        repositories.ItemRepository
	Transactions repositories.ProductionRepository
	Resolver     *bom.Resolver
	Analyzer     *feasibility.Analyzer
	Calculator   *costing.Calculator
	Processor    *production.Processor
	// Metrics is optional; nil disables /metrics and request metrics
	Metrics *metrics.Metrics
	// Health is optional and pings the backing store
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

// Handler serves the BOM engine endpoints
type Handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewHandler creates the endpoint handler
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{deps: deps, logger: logger}
}

// NewRouter builds the gin engine with middleware and every route registered
func NewRouter(deps Dependencies) *gin.Engine {
	h := NewHandler(deps)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(h.logger))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	h.Register(router)
	return router
}

// Register attaches every route to r
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	if h.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.deps.Metrics.Handler()))
	}

	apiGroup := r.Group("/api")
	{
		prod := apiGroup.Group("/inventory/production")
		{
			prod.POST("/batch", h.ProductionBatch)
			prod.GET("/bom-check", h.BOMCheck)
			prod.POST("/bom-check", h.BOMCheck)
			prod.POST("/bom-check/batch", h.BOMCheckBatch)
			prod.GET("/transactions", h.ListTransactions)
		}

		price := apiGroup.Group("/price-master")
		{
			price.POST("/calculate-from-bom", h.CalculateFromBOM)
			price.GET("/calculate-from-bom/:item_id/export", h.ExportCost)
		}

		bomGroup := apiGroup.Group("/bom")
		{
			bomGroup.GET("/explode/:item_id", h.Explode)
			bomGroup.GET("/where-used/:child_item_id", h.WhereUsed)
		}
	}
}

// Health reports liveness and, when configured, store reachability
func (h *Handler) Health(c *gin.Context) {
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
