package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
)

const auditWriteTimeout = 3 * time.Second

// SheetFetcher downloads raw worksheet grids.
type SheetFetcher interface {
	Fetch(ctx context.Context, sheetNames []string) ([]models.RawSheet, error)
}

// RefreshRecorder persists one audit row per refresh attempt.
type RefreshRecorder interface {
	Record(ctx context.Context, event *models.RefreshEvent) error
}

// SheetLoaderParams wires the loader's collaborators. Recorder and Metrics are optional.
type SheetLoaderParams struct {
	Fetcher    SheetFetcher
	SheetNames []string
	Recorder   RefreshRecorder
	Metrics    *MetricsService
	Logger     *zap.Logger
}

// SheetLoader fetches and normalises the configured worksheets. It is the
// loader behind TableCache.
type SheetLoader struct {
	fetcher    SheetFetcher
	sheetNames []string
	recorder   RefreshRecorder
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewSheetLoader constructs a SheetLoader.
func NewSheetLoader(params SheetLoaderParams) *SheetLoader {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetLoader{
		fetcher:    params.Fetcher,
		sheetNames: params.SheetNames,
		recorder:   params.Recorder,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Load runs one fetch and normalise pass. Zero usable rows is reported as
// ErrEmptyResult so the cache keeps serving what it already has.
func (l *SheetLoader) Load(ctx context.Context) (*models.Table, error) {
	started := l.now()
	raw, err := l.fetcher.Fetch(ctx, l.sheetNames)

	var (
		table  *models.Table
		report models.NormalizeReport
		status = models.RefreshStatusFailed
	)
	if err == nil {
		table, report = NormalizeSheets(raw)
		status = models.RefreshStatusSuccess
		if table.Len() == 0 {
			status = models.RefreshStatusEmpty
			err = appErrors.ErrEmptyResult
		}
	}
	duration := l.now().Sub(started)

	l.metrics.ObserveRefresh(status, duration, report, table.Len())
	l.record(ctx, started, duration, status, report, err)

	fields := []zap.Field{
		zap.String("status", string(status)),
		zap.Duration("duration", duration),
		zap.Int("sheets_loaded", report.SheetsLoaded),
		zap.Int("rows_loaded", report.RowsLoaded),
		zap.Int("rows_dropped_empty", report.RowsDroppedEmpty),
		zap.Int("rows_dropped_invalid_date", report.RowsDroppedNoDate),
	}
	if report.HeaderFallbackCount > 0 {
		fields = append(fields, zap.Int("header_fallbacks", report.HeaderFallbackCount))
	}
	if err != nil {
		l.logger.Warn("sheet refresh failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	l.logger.Info("sheet refresh complete", fields...)
	return table, nil
}

func (l *SheetLoader) record(ctx context.Context, started time.Time, duration time.Duration, status models.RefreshStatus, report models.NormalizeReport, cause error) {
	if l.recorder == nil {
		return
	}
	event := &models.RefreshEvent{
		ID:                     uuid.NewString(),
		StartedAt:              started.UTC(),
		DurationMs:             duration.Milliseconds(),
		SheetsLoaded:           report.SheetsLoaded,
		RowsLoaded:             report.RowsLoaded,
		RowsDroppedEmpty:       report.RowsDroppedEmpty,
		RowsDroppedInvalidDate: report.RowsDroppedNoDate,
		Status:                 status,
	}
	if cause != nil {
		msg := cause.Error()
		event.ErrorMessage = &msg
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := l.recorder.Record(writeCtx, event); err != nil {
		l.logger.Warn("refresh audit write failed", zap.String("refresh_id", event.ID), zap.Error(err))
	}
}
