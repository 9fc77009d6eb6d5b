package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/middleware"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/response"
)

const (
	defaultRefreshPageSize = 20
	maxRefreshPageSize     = 100
)

type tableCache interface {
	Get(ctx context.Context, force bool) (*models.Table, models.CacheSource)
	State() models.CacheState
	FetchedAt() time.Time
}

type refreshLog interface {
	List(ctx context.Context, filter models.RefreshFilter) ([]models.RefreshEvent, int, error)
}

type snapshotPurger interface {
	Purge(ctx context.Context) error
}

// CacheHandler exposes operator endpoints for the table cache.
type CacheHandler struct {
	cache    tableCache
	log      refreshLog
	snapshot snapshotPurger
}

// NewCacheHandler constructs the handler. log and snapshot may be nil when
// their backing stores are disabled.
func NewCacheHandler(cache tableCache, log refreshLog, snapshot snapshotPurger) *CacheHandler {
	return &CacheHandler{cache: cache, log: log, snapshot: snapshot}
}

// Refresh godoc
// @Summary Force a spreadsheet refresh
// @Tags Cache
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /cache/refresh [post]
func (h *CacheHandler) Refresh(c *gin.Context) {
	table, source := h.cache.Get(c.Request.Context(), true)
	fetchedAt := h.cache.FetchedAt()
	resp := dto.RefreshResponse{
		Source: string(source),
		State:  string(h.cache.State()),
		Rows:   table.Len(),
	}
	if !fetchedAt.IsZero() {
		resp.FetchedAt = fetchedAt.UTC().Format(time.RFC3339)
	}
	middleware.SetCacheSource(c, source, fetchedAt)
	response.JSON(c, http.StatusOK, resp, nil, middleware.ExtractMeta(c))
}

// Refreshes godoc
// @Summary List refresh attempts
// @Tags Cache
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /cache/refreshes [get]
func (h *CacheHandler) Refreshes(c *gin.Context) {
	if h.log == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "refresh audit log is disabled"))
		return
	}
	filter := models.RefreshFilter{Limit: defaultRefreshPageSize}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}
	if filter.Limit > maxRefreshPageSize {
		filter.Limit = maxRefreshPageSize
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "offset must be a non-negative integer"))
			return
		}
		filter.Offset = offset
	}

	events, total, err := h.log.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list refreshes"))
		return
	}
	pagination := &models.Pagination{Limit: filter.Limit, Offset: filter.Offset, TotalCount: total}
	response.JSON(c, http.StatusOK, events, pagination)
}

// PurgeSnapshot godoc
// @Summary Delete the Redis table snapshot
// @Tags Cache
// @Security BearerAuth
// @Success 204
// @Router /cache/snapshot [delete]
func (h *CacheHandler) PurgeSnapshot(c *gin.Context) {
	if h.snapshot == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "snapshot store is disabled"))
		return
	}
	if err := h.snapshot.Purge(c.Request.Context()); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to purge snapshot"))
		return
	}
	c.Status(http.StatusNoContent)
}
