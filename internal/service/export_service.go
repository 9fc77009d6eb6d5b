package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/export"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/storage"
)

// ExportKind names one downloadable dataset.
type ExportKind string

const (
	ExportOverall          ExportKind = "overall"
	ExportLast7            ExportKind = "last7"
	ExportRevenueTrend     ExportKind = "revenue_trend"
	ExportExamDistribution ExportKind = "exam_distribution"
	ExportRevenueByExam    ExportKind = "revenue_by_exam"
	ExportBatchSummary     ExportKind = "batch_summary"
	ExportFullData         ExportKind = "full_data"
)

// Export column headers not shared with the batch summary.
const (
	columnDate            = "Date"
	columnEnrollmentCount = "Enrollment Count"
	columnRevenue         = "Revenue (₹ Cr)"
	columnPrimaryOrders   = "Primary Orders"
	columnUpgradeOrders   = "Upgrade Orders"
	totalRowLabel         = "TOTAL"
	timestampLayout       = "20060102_150405"
)

type exportLayout struct {
	sheet string
	title string
}

var exportLayouts = map[ExportKind]exportLayout{
	ExportOverall:          {sheet: "Overall Enrollment", title: "Overall_Enrollment"},
	ExportLast7:            {sheet: "Last 7 Days", title: "Last_7_Days_Enrollment"},
	ExportRevenueTrend:     {sheet: "Revenue Trend", title: "Revenue_Trend"},
	ExportExamDistribution: {sheet: "Exam Distribution", title: "Exam_Distribution"},
	ExportRevenueByExam:    {sheet: "Revenue by Exam", title: "Revenue_by_Exam"},
	ExportBatchSummary:     {sheet: "Batch Summary", title: "Batch_Summary"},
	ExportFullData:         {sheet: "Data", title: "Full_Data"},
}

// ParseExportKind validates raw as an ExportKind.
func ParseExportKind(raw string) (ExportKind, error) {
	kind := ExportKind(strings.TrimSpace(raw))
	if _, ok := exportLayouts[kind]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export kind %q", raw))
	}
	return kind, nil
}

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Read(relPath string) ([]byte, error)
	Delete(relPath string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tableViewer interface {
	View(ctx context.Context, q dto.DashboardQuery) (*TableView, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportServiceParams groups constructor dependencies. Storage and Signer are
// only needed for stored exports.
type ExportServiceParams struct {
	Viewer    tableViewer
	Storage   fileStorage
	Signer    *storage.SignedURLSigner
	Renderers map[export.Format]export.Renderer
	Metrics   *MetricsService
	Logger    *zap.Logger
	Config    ExportConfig
}

// ExportFile is one rendered export.
type ExportFile struct {
	Kind        ExportKind
	Format      export.Format
	FileName    string
	ContentType string
	Rows        int
	Payload     []byte
	Meta        models.TableMeta
}

// ExportService renders dashboard datasets to files and serves stored copies
// through signed links.
type ExportService struct {
	viewer    tableViewer
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[export.Format]export.Renderer
	metrics   *MetricsService
	logger    *zap.Logger
	validator *validator.Validate
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	renderers := params.Renderers
	if renderers == nil {
		renderers = map[export.Format]export.Renderer{
			export.FormatXLSX: export.NewXLSXExporter(),
			export.FormatCSV:  export.NewCSVExporter(),
			export.FormatPDF:  export.NewPDFExporter(),
		}
	}
	return &ExportService{
		viewer:    params.Viewer,
		storage:   params.Storage,
		signer:    params.Signer,
		renderers: renderers,
		metrics:   params.Metrics,
		logger:    logger,
		validator: validator.New(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Render builds and encodes one export for the filtered table.
func (s *ExportService) Render(ctx context.Context, kind ExportKind, format export.Format, q dto.DashboardQuery) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	view, err := s.viewer.View(ctx, q)
	if err != nil {
		return nil, err
	}

	kind, dataset := BuildDataset(kind, view)
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.metrics.RecordExport(string(kind), string(format))

	stamp := view.Meta.FetchedAt
	if stamp.IsZero() {
		stamp = s.now()
	}
	return &ExportFile{
		Kind:        kind,
		Format:      format,
		FileName:    fmt.Sprintf("%s_%s.%s", exportLayouts[kind].title, stamp.UTC().Format(timestampLayout), format),
		ContentType: format.ContentType(),
		Rows:        len(dataset.Rows),
		Payload:     payload,
		Meta:        view.Meta,
	}, nil
}

// Store renders an export, writes it under the exports directory and returns
// a signed, expiring download link.
func (s *ExportService) Store(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export storage is not configured")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	kind, err := ParseExportKind(req.Kind)
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	file, err := s.Render(ctx, kind, format, req.Query())
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	relPath, err := s.storage.Save(path.Join(id, file.FileName), file.Payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export stored",
		zap.String("export_id", id),
		zap.String("kind", string(file.Kind)),
		zap.String("format", string(format)),
		zap.Int("rows", file.Rows),
	)
	return &dto.ExportResponse{
		ID:        id,
		Kind:      string(file.Kind),
		Format:    string(format),
		FileName:  file.FileName,
		Rows:      file.Rows,
		URL:       fmt.Sprintf("%s/exports/download/%s", prefix, token),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export storage is not configured")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	payload, err := s.storage.Read(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	fileName := path.Base(relPath)
	format, _ := export.ParseFormat(strings.TrimPrefix(path.Ext(fileName), "."))
	return &ExportFile{
		FileName:    fileName,
		Format:      format,
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

// Cleanup removes stored exports older than the result TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

// StartCleanup purges expired exports every CleanupInterval until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.storage == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup()
				if err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(removed) > 0 {
					s.logger.Sugar().Infow("export cleanup removed files", "count", len(removed))
				}
			}
		}
	}()
}

// BuildDataset lays out kind for the filtered table. A batch summary of a
// table without batch names degrades to the raw data, so the returned kind
// may differ from the requested one. Aggregates the table cannot support
// produce a header-only sheet.
func BuildDataset(kind ExportKind, view *TableView) (ExportKind, export.Dataset) {
	t := view.Table
	if kind == ExportBatchSummary && !t.Fields.Has(models.FieldBatch) {
		kind = ExportFullData
	}
	ds := export.Dataset{SheetName: exportLayouts[kind].sheet, Rows: [][]interface{}{}}

	switch kind {
	case ExportOverall:
		ds.Headers = []string{models.ColumnBatchName, columnEnrollmentCount}
		for _, b := range BatchCounts(t) {
			ds.Rows = append(ds.Rows, []interface{}{b.Batch, b.Count})
		}
	case ExportLast7:
		ds.Headers = []string{columnDate, models.ColumnTotalEnrollments}
		for _, d := range RecentTrend(t, view.Anchor) {
			ds.Rows = append(ds.Rows, []interface{}{d.Date, d.Count})
		}
	case ExportRevenueTrend:
		ds.Headers = []string{columnDate, columnRevenue}
		for _, d := range RevenueTrend(t, view.Anchor) {
			ds.Rows = append(ds.Rows, []interface{}{d.Date, d.Revenue})
		}
	case ExportExamDistribution:
		ds.Headers = []string{models.ColumnExamCategory, columnEnrollmentCount}
		for _, c := range CategoryDistribution(t) {
			ds.Rows = append(ds.Rows, []interface{}{c.Category, c.Count})
		}
	case ExportRevenueByExam:
		ds.Headers = []string{models.ColumnExamCategory, columnRevenue}
		for _, c := range CategoryRevenue(t) {
			ds.Rows = append(ds.Rows, []interface{}{c.Category, c.Revenue})
		}
	case ExportBatchSummary:
		ds.Headers, ds.Rows = batchSummaryRows(BuildBatchSummary(t))
	case ExportFullData:
		for _, col := range models.Columns {
			if t.Fields.Has(col.Field) {
				ds.Headers = append(ds.Headers, col.Name)
			}
		}
		for i := range t.Records {
			row := make([]interface{}, 0, len(ds.Headers))
			for _, col := range models.Columns {
				if t.Fields.Has(col.Field) {
					row = append(row, t.Records[i].Value(col.Field))
				}
			}
			ds.Rows = append(ds.Rows, row)
		}
	}
	return kind, ds
}

// batchSummaryRows lays the summary out with separate order-type counts and
// a trailing TOTAL row.
func batchSummaryRows(summary *models.BatchSummary) ([]string, [][]interface{}) {
	hasExam := summary.HasColumn(models.ColumnExamCategory)
	hasRevenue := summary.HasColumn(models.ColumnTotalRevenue)
	hasOrders := summary.HasColumn(models.ColumnOrderTypes)
	hasLeader := summary.HasColumn(models.ColumnLeader)

	headers := []string{models.ColumnBatchName, models.ColumnTotalEnrollments}
	if hasExam {
		headers = append(headers, models.ColumnExamCategory)
	}
	if hasRevenue {
		headers = append(headers, models.ColumnTotalRevenue)
	}
	if hasOrders {
		headers = append(headers, columnPrimaryOrders, columnUpgradeOrders)
	}
	if hasLeader {
		headers = append(headers, models.ColumnLeader)
	}

	rows := make([][]interface{}, 0, len(summary.Rows)+1)
	for _, r := range summary.Rows {
		row := []interface{}{r.Batch, r.Enrollments}
		if hasExam {
			row = append(row, r.Exam)
		}
		if hasRevenue {
			row = append(row, r.Revenue)
		}
		if hasOrders {
			row = append(row, r.PrimaryOrders, r.UpgradeOrders)
		}
		if hasLeader {
			row = append(row, r.Leader)
		}
		rows = append(rows, row)
	}

	total := []interface{}{totalRowLabel, summary.Totals.Enrollments}
	if hasExam {
		total = append(total, "")
	}
	if hasRevenue {
		total = append(total, summary.Totals.Revenue)
	}
	if hasOrders {
		total = append(total, summary.Totals.PrimaryOrders, summary.Totals.UpgradeOrders)
	}
	if hasLeader {
		total = append(total, "")
	}
	rows = append(rows, total)
	return headers, rows
}
