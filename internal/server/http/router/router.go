package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	pkgAuth "github.com/polkiloo/salesrollup/internal/pkg/auth"
	"github.com/polkiloo/salesrollup/internal/server/http/handlers"
	"github.com/polkiloo/salesrollup/internal/server/http/middleware"
)

// Params groups router dependencies.
type Params struct {
	fx.In

	Facade   handlers.SalesFacade
	Strategy pkgAuth.Strategy
	Verifier pkgAuth.KeyVerifier
	Logger   *slog.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(p.Logger))
	engine.Use(middleware.DecompressRequest(0))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	changeHandler := handlers.NewChangeHandler(p.Facade, p.Logger)
	statsHandler := handlers.NewStatsHandler(p.Facade)
	healthHandler := handlers.NewHealthHandler(p.Facade)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Check)

	stores := api.Group("/stores/:" + middleware.TenantParam)
	stores.POST("/orders/:orderId/changes", middleware.APIKeyRequired(p.Verifier), changeHandler.Submit)
	stores.GET("/stats/sales", middleware.TenantTokenRequired(p.Strategy), statsHandler.Get)

	return engine
}
