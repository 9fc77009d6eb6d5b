package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

const refreshLogSchema = `CREATE TABLE IF NOT EXISTS sheet_refreshes (
    id UUID PRIMARY KEY,
    started_at TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL,
    sheets_loaded INTEGER NOT NULL DEFAULT 0,
    rows_loaded INTEGER NOT NULL DEFAULT 0,
    rows_dropped_empty INTEGER NOT NULL DEFAULT 0,
    rows_dropped_invalid_date INTEGER NOT NULL DEFAULT 0,
    status VARCHAR(16) NOT NULL,
    error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_sheet_refreshes_started_at ON sheet_refreshes (started_at DESC)`

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// RefreshLogRepository persists one audit row per sheet refresh attempt.
type RefreshLogRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewRefreshLogRepository constructs the repository. metrics may be nil.
func NewRefreshLogRepository(db *sqlx.DB, metrics queryObserver) *RefreshLogRepository {
	return &RefreshLogRepository{db: db, metrics: metrics}
}

// EnsureSchema creates the sheet_refreshes table when it does not exist.
func (r *RefreshLogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, refreshLogSchema); err != nil {
		return fmt.Errorf("ensure sheet_refreshes schema: %w", err)
	}
	return nil
}

// Record inserts event.
func (r *RefreshLogRepository) Record(ctx context.Context, event *models.RefreshEvent) error {
	const query = `INSERT INTO sheet_refreshes (id, started_at, duration_ms, sheets_loaded, rows_loaded,
    rows_dropped_empty, rows_dropped_invalid_date, status, error_message)
VALUES (:id, :started_at, :duration_ms, :sheets_loaded, :rows_loaded,
    :rows_dropped_empty, :rows_dropped_invalid_date, :status, :error_message)`
	defer r.observe("refresh_log_insert", time.Now())
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert sheet refresh: %w", err)
	}
	return nil
}

// List returns audit rows newest first together with the total row count.
func (r *RefreshLogRepository) List(ctx context.Context, filter models.RefreshFilter) ([]models.RefreshEvent, int, error) {
	defer r.observe("refresh_log_list", time.Now())

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sheet_refreshes`); err != nil {
		return nil, 0, fmt.Errorf("count sheet refreshes: %w", err)
	}

	const query = `SELECT id, started_at, duration_ms, sheets_loaded, rows_loaded, rows_dropped_empty,
    rows_dropped_invalid_date, status, error_message
FROM sheet_refreshes ORDER BY started_at DESC LIMIT $1 OFFSET $2`
	events := make([]models.RefreshEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, filter.Limit, filter.Offset); err != nil {
		return nil, 0, fmt.Errorf("list sheet refreshes: %w", err)
	}
	return events, total, nil
}

func (r *RefreshLogRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}
