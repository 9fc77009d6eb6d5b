package models

import "time"

// CroreDivisor converts rupees into Crores.
const CroreDivisor = 10_000_000.0

// BatchCount is the number of enrollments for one batch.
type BatchCount struct {
	Batch string `json:"batch"`
	Count int    `json:"count"`
}

// DailyCount is the number of enrollments converted on one calendar date.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DailyRevenue is the net revenue in Crores converted on one calendar date.
type DailyRevenue struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue_crores"`
}

// CategoryCount is the number of enrollments for one exam category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryRevenue is the net revenue in Crores for one exam category.
type CategoryRevenue struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue_crores"`
}

// Batch summary column headers.
const (
	ColumnBatchName        = "Batch Name"
	ColumnTotalEnrollments = "Total Enrollments"
	ColumnExamCategory     = "Exam Category"
	ColumnTotalRevenue     = "Total Revenue (₹ Cr)"
	ColumnLeader           = "Leader"
	ColumnOrderTypes       = "Order Types"
)

// BatchSummaryRow aggregates one batch. Optional values are only meaningful
// when the matching column is listed in BatchSummary.Columns.
type BatchSummaryRow struct {
	Batch         string  `json:"batch"`
	Enrollments   int     `json:"enrollments"`
	Exam          string  `json:"exam,omitempty"`
	Revenue       float64 `json:"revenue_crores"`
	Leader        string  `json:"leader,omitempty"`
	OrderTypes    string  `json:"order_types,omitempty"`
	PrimaryOrders int     `json:"primary_orders"`
	UpgradeOrders int     `json:"upgrade_orders"`
}

// BatchSummaryTotals is the trailing TOTAL row. Non-numeric columns stay blank.
type BatchSummaryTotals struct {
	Enrollments   int     `json:"enrollments"`
	Revenue       float64 `json:"revenue_crores"`
	PrimaryOrders int     `json:"primary_orders"`
	UpgradeOrders int     `json:"upgrade_orders"`
}

// BatchSummary is the per-batch table, sorted by enrollments descending.
type BatchSummary struct {
	Columns []string           `json:"columns"`
	Rows    []BatchSummaryRow  `json:"rows"`
	Totals  BatchSummaryTotals `json:"totals"`
}

// HasColumn reports whether name is part of the summary.
func (s *BatchSummary) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// SummaryMetrics backs the headline cards. Nil members could not be computed.
type SummaryMetrics struct {
	TotalEnrollments int      `json:"total_enrollments"`
	Last7Days        *int     `json:"last_7_days,omitempty"`
	TotalRevenue     *float64 `json:"total_revenue_crores,omitempty"`
}
