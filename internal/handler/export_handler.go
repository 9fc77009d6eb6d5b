package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/middleware"
	"github.com/noah-isme/enrollment-dashboard-api/internal/service"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/export"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/response"
)

type exportService interface {
	Render(ctx context.Context, kind service.ExportKind, format export.Format, q dto.DashboardQuery) (*service.ExportFile, error)
	Store(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error)
	Open(token string) (*service.ExportFile, error)
}

// ExportHandler serves spreadsheet exports of the dashboard datasets.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Download godoc
// @Summary Download an export
// @Description Renders one dashboard dataset for the filtered enrollments and streams it.
// @Tags Exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,text/csv,application/pdf
// @Param kind path string true "overall, last7, revenue_trend, exam_distribution, revenue_by_exam, batch_summary or full_data"
// @Param format query string false "xlsx (default), csv or pdf"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD), inclusive"
// @Param batch query []string false "Batch names" collectionFormat(multi)
// @Param exam query []string false "Exam categories" collectionFormat(multi)
// @Param plan query []string false "Plans" collectionFormat(multi)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/{kind} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	kind, err := service.ParseExportKind(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	file, err := h.service.Render(c.Request.Context(), kind, format, dashboardQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheSource(c, file.Meta.Source, file.Meta.FetchedAt)
	response.Attachment(c, file.FileName, file.ContentType, file.Payload)
}

// Create godoc
// @Summary Store an export
// @Description Renders an export, stores it and returns a signed download link.
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}
	resp, err := h.service.Store(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Fetch godoc
// @Summary Download a stored export
// @Tags Exports
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Fetch(c *gin.Context) {
	file, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.FileName, file.ContentType, file.Payload)
}
