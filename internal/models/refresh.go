package models

import "time"

// CacheSource tells callers where a served table came from.
type CacheSource string

const (
	CacheSourceCache    CacheSource = "cache"
	CacheSourceRemote   CacheSource = "remote"
	CacheSourceStale    CacheSource = "stale"
	CacheSourceSnapshot CacheSource = "snapshot"
	CacheSourceEmpty    CacheSource = "empty"
)

// Hit reports whether the table was served from a fresh cache entry.
func (s CacheSource) Hit() bool {
	return s == CacheSourceCache
}

// CacheState is the lifecycle state of the table cache.
type CacheState string

const (
	CacheStateEmpty CacheState = "EMPTY"
	CacheStateWarm  CacheState = "WARM"
)

// RefreshStatus is the outcome of one refresh attempt.
type RefreshStatus string

const (
	RefreshStatusSuccess RefreshStatus = "success"
	RefreshStatusEmpty   RefreshStatus = "empty"
	RefreshStatusFailed  RefreshStatus = "failed"
)

// NormalizeReport counts what normalisation kept and dropped.
type NormalizeReport struct {
	SheetsLoaded        int `json:"sheets_loaded"`
	RowsLoaded          int `json:"rows_loaded"`
	RowsDroppedEmpty    int `json:"rows_dropped_empty"`
	RowsDroppedNoDate   int `json:"rows_dropped_invalid_date"`
	HeaderFallbackCount int `json:"header_fallback_count"`
}

// RefreshEvent is one row of the sheet_refreshes audit table.
type RefreshEvent struct {
	ID                     string        `db:"id" json:"id"`
	StartedAt              time.Time     `db:"started_at" json:"started_at"`
	DurationMs             int64         `db:"duration_ms" json:"duration_ms"`
	SheetsLoaded           int           `db:"sheets_loaded" json:"sheets_loaded"`
	RowsLoaded             int           `db:"rows_loaded" json:"rows_loaded"`
	RowsDroppedEmpty       int           `db:"rows_dropped_empty" json:"rows_dropped_empty"`
	RowsDroppedInvalidDate int           `db:"rows_dropped_invalid_date" json:"rows_dropped_invalid_date"`
	Status                 RefreshStatus `db:"status" json:"status"`
	ErrorMessage           *string       `db:"error_message" json:"error_message,omitempty"`
}

// RefreshFilter pages through audit rows, newest first.
type RefreshFilter struct {
	Limit  int
	Offset int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalCount int `json:"total_count"`
}

// SystemMetrics is a point-in-time view of the service counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Refreshes                uint64    `json:"refreshes"`
	RefreshFailures          uint64    `json:"refresh_failures"`
	CachedRows               int64     `json:"cached_rows"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// TableMeta describes the cached table a response was computed from.
type TableMeta struct {
	Source    CacheSource
	FetchedAt time.Time
}
