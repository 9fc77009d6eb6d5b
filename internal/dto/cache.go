package dto

import "github.com/noah-isme/enrollment-dashboard-api/internal/models"

// RefreshResponse reports the outcome of a forced cache refresh.
type RefreshResponse struct {
	Source    string `json:"source"`
	State     string `json:"state"`
	Rows      int    `json:"rows"`
	FetchedAt string `json:"fetchedAt,omitempty"`
}

// ReadinessResponse is served by GET /ready.
type ReadinessResponse struct {
	Status     string               `json:"status"`
	CacheState string               `json:"cacheState"`
	FetchedAt  string               `json:"fetchedAt,omitempty"`
	Metrics    models.SystemMetrics `json:"metrics"`
}
