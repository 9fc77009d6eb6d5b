package dto

import "github.com/noah-isme/enrollment-dashboard-api/internal/models"

// DashboardQuery carries the filter controls of GET /dashboard. Dates use YYYY-MM-DD.
type DashboardQuery struct {
	From           string   `json:"from,omitempty"`
	To             string   `json:"to,omitempty"`
	Batches        []string `json:"batches,omitempty"`
	Exams          []string `json:"exams,omitempty"`
	Plans          []string `json:"plans,omitempty"`
	IncludeRecords bool     `json:"includeRecords,omitempty"`
}

// DateRange echoes a resolved date window as YYYY-MM-DD strings.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// DashboardResponse is the full dashboard payload. A nil chart means the
// source sheets lack a column it needs; an empty chart means no rows matched.
type DashboardResponse struct {
	Summary          models.SummaryMetrics    `json:"summary"`
	TopBatches       []models.BatchCount      `json:"topBatches"`
	RecentTrend      []models.DailyCount      `json:"recentTrend"`
	RevenueTrend     []models.DailyRevenue    `json:"revenueTrend"`
	ExamDistribution []models.CategoryCount   `json:"examDistribution"`
	RevenueByExam    []models.CategoryRevenue `json:"revenueByExam"`
	BatchSummary     *models.BatchSummary     `json:"batchSummary"`
	Records          []models.Enrollment      `json:"records,omitempty"`
	Range            DateRange                `json:"range"`
	RecentWindow     DateRange                `json:"recentWindow"`
	MatchedRows      int                      `json:"matchedRows"`
}

// OptionsResponse lists the selectable values of one filter dimension.
type OptionsResponse struct {
	Dimension string   `json:"dimension"`
	Values    []string `json:"values"`
}
