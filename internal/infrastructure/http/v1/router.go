// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"formdesk/internal/domain/opname"
	"formdesk/internal/domain/purchase"
	"formdesk/internal/domain/sales"
	"formdesk/internal/domain/submit"
	"formdesk/internal/infrastructure/http/v1/dto"
	"formdesk/internal/infrastructure/http/v1/handlers"
	"formdesk/internal/infrastructure/http/v1/middleware"
	"formdesk/internal/infrastructure/session"
	"formdesk/pkg/logger"
)

// Records loads persisted documents for editing.
type Records interface {
	handlers.PurchaseRecords
	handlers.SalesRecords
	handlers.OpnameRecords
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Development enables gin debug mode
	Development bool

	// AllowedOrigins enables CORS for the listed browser origins
	AllowedOrigins []string

	// TokenParser reads the bearer token of protected requests
	TokenParser middleware.TokenParser

	// Refresher renews credentials before inline product creation; optional
	Refresher middleware.CredentialRefresher

	// Catalog is the reference data registry
	Catalog handlers.Catalog

	// Records loads persisted documents
	Records Records

	PurchaseDeps   purchase.Deps
	PurchaseDrafts *session.Manager[*purchase.Form]
	PurchaseSubmit *submit.Orchestrator[purchase.Payload]

	SalesDeps   sales.Deps
	SalesDrafts *session.Manager[*sales.Form]
	SalesSubmit *submit.Orchestrator[sales.Payload]

	OpnameDeps   opname.Deps
	OpnameDrafts *session.Manager[*opname.Form]
	OpnameSubmit *submit.Orchestrator[opname.Payload]

	// Reports builds the trial balance
	Reports handlers.TrialBalanceService

	// HealthChecks are pinged by the readiness probe
	HealthChecks map[string]handlers.Pinger

	// SummaryLimit caps the messages joined into a validation summary
	SummaryLimit int
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	dto.RegisterValidation()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(cfg.AllowedOrigins))
	}
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks, cfg.draftStats)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.TokenParser))

		base := handlers.NewBaseHandler(cfg.SummaryLimit)
		registerReferenceRoutes(protected, base, cfg)
		registerFormRoutes(protected, base, cfg)
		registerReportRoutes(protected, base, cfg)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func (cfg RouterConfig) freshCredential() []gin.HandlerFunc {
	if cfg.Refresher == nil {
		return nil
	}
	return []gin.HandlerFunc{middleware.FreshCredential(cfg.Refresher)}
}

func (cfg RouterConfig) draftStats() map[string]any {
	stats := make(map[string]any, 3)
	if cfg.PurchaseDrafts != nil {
		stats["purchase_requests"] = cfg.PurchaseDrafts.Stats()
	}
	if cfg.SalesDrafts != nil {
		stats["sales_orders"] = cfg.SalesDrafts.Stats()
	}
	if cfg.OpnameDrafts != nil {
		stats["stock_opnames"] = cfg.OpnameDrafts.Stats()
	}
	return stats
}

func registerReferenceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewReferenceHandler(base, cfg.Catalog)
	ref := rg.Group("/reference")
	{
		ref.GET("/me", h.CurrentEmployee)
		ref.POST("/products", append(cfg.freshCredential(), h.CreateProduct)...)
		ref.GET("/:kind", h.List)
	}
}

func registerFormRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	forms := rg.Group("/forms")

	if cfg.PurchaseDrafts != nil {
		h := handlers.NewPurchaseHandler(base, cfg.PurchaseDrafts, cfg.PurchaseSubmit, cfg.Catalog, cfg.PurchaseDeps, cfg.Records)
		RegisterFormRoutes(forms.Group("/purchase-requests"), h, cfg.freshCredential()...)
	}
	if cfg.SalesDrafts != nil {
		h := handlers.NewSalesHandler(base, cfg.SalesDrafts, cfg.SalesSubmit, cfg.Catalog, cfg.SalesDeps, cfg.Records)
		RegisterFormRoutes(forms.Group("/sales-orders"), h, cfg.freshCredential()...)
	}
	if cfg.OpnameDrafts != nil {
		h := handlers.NewOpnameHandler(base, cfg.OpnameDrafts, cfg.OpnameSubmit, cfg.Catalog, cfg.OpnameDeps, cfg.Records)
		RegisterFormRoutes(forms.Group("/stock-opnames"), h, cfg.freshCredential()...)
	}
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Reports == nil {
		return
	}
	h := handlers.NewReportsHandler(base, cfg.Reports)
	rg.Group("/reports").GET("/trial-balance", h.GetTrialBalance)
}
