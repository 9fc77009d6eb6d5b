package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/middleware"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, q dto.DashboardQuery) (*dto.DashboardResponse, models.TableMeta, error)
	Options(ctx context.Context, dimension, search string) (*dto.OptionsResponse, models.TableMeta, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Dashboard godoc
// @Summary Enrollment dashboard
// @Description Summary metrics, chart datasets and the batch summary for the filtered enrollments.
// @Tags Dashboard
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD), inclusive"
// @Param batch query []string false "Batch names" collectionFormat(multi)
// @Param exam query []string false "Exam categories" collectionFormat(multi)
// @Param plan query []string false "Plans" collectionFormat(multi)
// @Param include query string false "Set to records to include the filtered rows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	resp, meta, err := h.service.Dashboard(c.Request.Context(), dashboardQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, resp, meta, start)
}

// Options godoc
// @Summary Filter options
// @Description Sorted distinct values of one filter dimension, narrowed by an optional case-insensitive search.
// @Tags Dashboard
// @Produce json
// @Param dimension query string true "batch, exam or plan"
// @Param search query string false "Substring to match"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard/options [get]
func (h *DashboardHandler) Options(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	dimension := strings.ToLower(strings.TrimSpace(c.Query("dimension")))
	if dimension == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dimension is required"))
		return
	}
	start := time.Now()
	resp, meta, err := h.service.Options(c.Request.Context(), dimension, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, resp, meta, start)
}

func respond(c *gin.Context, data interface{}, table models.TableMeta, start time.Time) {
	middleware.SetCacheSource(c, table.Source, table.FetchedAt)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}

func dashboardQuery(c *gin.Context) dto.DashboardQuery {
	include, _ := strconv.ParseBool(c.Query("include_records"))
	if strings.EqualFold(strings.TrimSpace(c.Query("include")), "records") {
		include = true
	}
	return dto.DashboardQuery{
		From:           strings.TrimSpace(c.Query("from")),
		To:             strings.TrimSpace(c.Query("to")),
		Batches:        queryList(c, "batch"),
		Exams:          queryList(c, "exam"),
		Plans:          queryList(c, "plan"),
		IncludeRecords: include,
	}
}

// queryList reads a repeated parameter; commas are part of the value.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		if raw = strings.TrimSpace(raw); raw != "" {
			out = append(out, raw)
		}
	}
	return out
}
