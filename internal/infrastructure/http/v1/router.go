// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"imeistock/internal/domain/catalogs/location"
	"imeistock/internal/domain/catalogs/phonemodel"
	"imeistock/internal/domain/ledger"
	"imeistock/internal/infrastructure/http/v1/handlers"
	"imeistock/internal/infrastructure/http/v1/middleware"
	"imeistock/internal/infrastructure/storage/postgres"
	"imeistock/pkg/logger"
)

// RouterConfig holds the wired dependencies for the HTTP API.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	LedgerService *ledger.Service
	Engine        *ledger.Engine
	Scheduler     *ledger.Scheduler
	Balances      ledger.BalanceStore
	Audit         *postgres.AuditService

	Locations   *location.Service
	PhoneModels *phonemodel.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// API v1
	api := router.Group("/api/v1")
	{
		eventsHandler := handlers.NewEventsHandler(baseHandler, cfg.LedgerService, cfg.Audit)
		events := api.Group("/events")
		{
			events.POST("", eventsHandler.Record)
			events.GET("", eventsHandler.List)
			events.GET("/:id", eventsHandler.Get)
			events.PUT("/:id", eventsHandler.Update)
			events.DELETE("/:id", eventsHandler.Delete)
			events.GET("/:id/history", eventsHandler.History)
		}

		balancesHandler := handlers.NewBalancesHandler(baseHandler, cfg.Balances, cfg.Engine, cfg.Scheduler, cfg.LedgerService)
		balances := api.Group("/balances")
		{
			balances.GET("", balancesHandler.List)
			balances.POST("/recalculate", balancesHandler.Recalculate)
			balances.GET("/verify", balancesHandler.Verify)
			balances.POST("/rollover", balancesHandler.Rollover)
		}

		catalogHandler := handlers.NewCatalogHandler(baseHandler, cfg.Locations, cfg.PhoneModels)
		locations := api.Group("/locations")
		{
			locations.POST("", catalogHandler.CreateLocation)
			locations.GET("", catalogHandler.ListLocations)
			locations.GET("/:id", catalogHandler.GetLocation)
			locations.PUT("/:id", catalogHandler.UpdateLocation)
		}
		models := api.Group("/models")
		{
			models.POST("", catalogHandler.CreatePhoneModel)
			models.GET("", catalogHandler.ListPhoneModels)
			models.GET("/:id", catalogHandler.GetPhoneModel)
			models.PUT("/:id", catalogHandler.UpdatePhoneModel)
		}
	}

	return router
}
