package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-dashboard-api/internal/middleware"
	"github.com/noah-isme/enrollment-dashboard-api/internal/service"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/enrollment-dashboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enrollment-dashboard-api/pkg/middleware/requestid"
)

// RouterParams groups the handlers and settings mounted by NewRouter.
type RouterParams struct {
	APIPrefix      string
	AllowedOrigins []string
	JWTSecret      string
	Logger         *zap.Logger
	Metrics        *service.MetricsService

	Dashboard     *DashboardHandler
	Cache         *CacheHandler
	Exports       *ExportHandler
	Observability *MetricsHandler
}

// NewRouter builds the gin engine with the shared middleware chain and every API route.
func NewRouter(p RouterParams) *gin.Engine {
	logr := p.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(p.AllowedOrigins))
	r.Use(middleware.Metrics(p.Metrics))

	r.GET("/health", p.Observability.Health)
	r.GET("/ready", p.Observability.Ready)
	r.GET("/metrics", p.Observability.Prometheus)

	prefix := p.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	api.GET("/dashboard", p.Dashboard.Dashboard)
	api.GET("/dashboard/options", p.Dashboard.Options)

	api.GET("/exports/:kind", p.Exports.Download)
	api.POST("/exports", p.Exports.Create)
	api.GET("/exports/download/:token", p.Exports.Fetch)

	guard := middleware.JWT(p.JWTSecret)
	api.POST("/cache/refresh", guard, p.Cache.Refresh)
	api.DELETE("/cache/snapshot", guard, p.Cache.PurgeSnapshot)
	api.GET("/cache/refreshes", p.Cache.Refreshes)

	return r
}
