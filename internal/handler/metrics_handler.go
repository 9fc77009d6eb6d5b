package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	"github.com/noah-isme/enrollment-dashboard-api/internal/service"
)

type cacheStateReader interface {
	State() models.CacheState
	FetchedAt() time.Time
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	cache   cacheStateReader
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, cache cacheStateReader) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, cache: cache}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports the table cache state. An EMPTY cache is still ready: the
// first dashboard request fills it.
func (h *MetricsHandler) Ready(c *gin.Context) {
	resp := dto.ReadinessResponse{
		Status:     "ok",
		CacheState: string(models.CacheStateEmpty),
		Metrics:    h.metrics.Snapshot(),
	}
	if h.cache != nil {
		resp.CacheState = string(h.cache.State())
		if fetchedAt := h.cache.FetchedAt(); !fetchedAt.IsZero() {
			resp.FetchedAt = fetchedAt.UTC().Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, resp)
}
