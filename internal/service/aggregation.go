package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

const (
	// TopBatchLimit caps the batch enrollment chart.
	TopBatchLimit = 15
	// TopCategoryRevenueLimit caps the revenue-by-exam chart.
	TopCategoryRevenueLimit = 10
	// RecentWindowDays is the length of the trend window in calendar days, anchor day included.
	RecentWindowDays = 7
)

// Every reducer returns nil when the table lacks a field it needs and an
// empty, non-nil result when the fields exist but no rows qualify.

// TopBatches returns the TopBatchLimit busiest batches in ascending order of count.
func TopBatches(t *models.Table) []models.BatchCount {
	counts := BatchCounts(t)
	if counts == nil {
		return nil
	}
	if len(counts) > TopBatchLimit {
		counts = counts[:TopBatchLimit]
	}
	out := make([]models.BatchCount, len(counts))
	for i, c := range counts {
		out[len(counts)-1-i] = c
	}
	return out
}

// BatchCounts returns enrollments per batch, busiest first, ties by name.
func BatchCounts(t *models.Table) []models.BatchCount {
	if !t.Fields.Has(models.FieldBatch) {
		return nil
	}
	order, counts := countBy(t.Records, func(r *models.Enrollment) string { return r.Batch })
	out := make([]models.BatchCount, 0, len(order))
	for _, name := range order {
		out = append(out, models.BatchCount{Batch: name, Count: counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Batch < out[j].Batch
	})
	return out
}

// WindowAnchor picks the day the recent window ends on: the selection's upper
// bound when set, otherwise the latest converted date in t.
func WindowAnchor(t *models.Table, sel models.Selection) (time.Time, bool) {
	if !t.Fields.Has(models.FieldConvertedDate) {
		return time.Time{}, false
	}
	if !sel.To.IsZero() {
		return sel.To, true
	}
	_, latest, ok := t.DateRange()
	return latest, ok
}

// RecentWindow returns the half-open interval [start, end) covering the
// RecentWindowDays calendar days that end on anchor's day.
func RecentWindow(anchor time.Time) (time.Time, time.Time) {
	end := dateOnly(anchor).AddDate(0, 0, 1)
	return end.AddDate(0, 0, -RecentWindowDays), end
}

// RecentTrend counts enrollments per calendar date inside the recent window.
// Dates without enrollments are absent.
func RecentTrend(t *models.Table, anchor time.Time) []models.DailyCount {
	if !t.Fields.Has(models.FieldConvertedDate) {
		return nil
	}
	out := make([]models.DailyCount, 0, RecentWindowDays)
	if anchor.IsZero() {
		return out
	}
	days, _ := bucketWindow(t.Records, anchor, func(*models.Enrollment) float64 { return 0 })
	for _, d := range days {
		out = append(out, models.DailyCount{Date: d.day, Count: d.count})
	}
	return out
}

// RevenueTrend sums net revenue per calendar date inside the recent window, in Crores.
func RevenueTrend(t *models.Table, anchor time.Time) []models.DailyRevenue {
	if !t.Fields.Has(models.FieldConvertedDate, models.FieldNetAmount) {
		return nil
	}
	out := make([]models.DailyRevenue, 0, RecentWindowDays)
	if anchor.IsZero() {
		return out
	}
	days, _ := bucketWindow(t.Records, anchor, func(r *models.Enrollment) float64 { return r.NetAmount })
	for _, d := range days {
		out = append(out, models.DailyRevenue{Date: d.day, Revenue: ToCrores(d.sum)})
	}
	return out
}

// CategoryDistribution counts enrollments per exam category, largest first.
func CategoryDistribution(t *models.Table) []models.CategoryCount {
	if !t.Fields.Has(models.FieldExam) {
		return nil
	}
	order, counts := countBy(t.Records, func(r *models.Enrollment) string { return r.Exam })
	out := make([]models.CategoryCount, 0, len(order))
	for _, name := range order {
		out = append(out, models.CategoryCount{Category: name, Count: counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TopCategoryRevenue returns the TopCategoryRevenueLimit highest-earning exam categories.
func TopCategoryRevenue(t *models.Table) []models.CategoryRevenue {
	out := CategoryRevenue(t)
	if len(out) > TopCategoryRevenueLimit {
		out = out[:TopCategoryRevenueLimit]
	}
	return out
}

// CategoryRevenue sums net revenue per exam category in Crores, largest first.
func CategoryRevenue(t *models.Table) []models.CategoryRevenue {
	if !t.Fields.Has(models.FieldExam, models.FieldNetAmount) {
		return nil
	}
	var order []string
	sums := make(map[string]float64)
	for i := range t.Records {
		r := &t.Records[i]
		if _, ok := sums[r.Exam]; !ok {
			order = append(order, r.Exam)
		}
		sums[r.Exam] += r.NetAmount
	}
	out := make([]models.CategoryRevenue, 0, len(order))
	for _, name := range order {
		out = append(out, models.CategoryRevenue{Category: name, Revenue: ToCrores(sums[name])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BuildBatchSummary groups t by batch. Exam and leader are the first non-blank
// values seen in table order. Rows are sorted by enrollments descending.
func BuildBatchSummary(t *models.Table) *models.BatchSummary {
	if !t.Fields.Has(models.FieldBatch) {
		return nil
	}
	summary := &models.BatchSummary{
		Columns: []string{models.ColumnBatchName, models.ColumnTotalEnrollments},
		Rows:    []models.BatchSummaryRow{},
	}
	hasExam := t.Fields.Has(models.FieldExam)
	hasRevenue := t.Fields.Has(models.FieldNetAmount)
	hasLeader := t.Fields.Has(models.FieldLeader)
	hasOrderType := t.Fields.Has(models.FieldOrderType)
	if hasExam {
		summary.Columns = append(summary.Columns, models.ColumnExamCategory)
	}
	if hasRevenue {
		summary.Columns = append(summary.Columns, models.ColumnTotalRevenue)
	}
	if hasLeader {
		summary.Columns = append(summary.Columns, models.ColumnLeader)
	}
	if hasOrderType {
		summary.Columns = append(summary.Columns, models.ColumnOrderTypes)
	}

	index := make(map[string]int)
	rawRevenue := make([]float64, 0)
	var totalRaw float64
	for i := range t.Records {
		r := &t.Records[i]
		idx, ok := index[r.Batch]
		if !ok {
			idx = len(summary.Rows)
			index[r.Batch] = idx
			summary.Rows = append(summary.Rows, models.BatchSummaryRow{Batch: r.Batch})
			rawRevenue = append(rawRevenue, 0)
		}
		row := &summary.Rows[idx]
		row.Enrollments++
		if hasExam && row.Exam == "" {
			row.Exam = r.Exam
		}
		if hasLeader && row.Leader == "" {
			row.Leader = r.Leader
		}
		if hasOrderType {
			switch r.OrderType {
			case models.OrderTypePrimary:
				row.PrimaryOrders++
			case models.OrderTypeUpgrade:
				row.UpgradeOrders++
			}
		}
		rawRevenue[idx] += r.NetAmount
		totalRaw += r.NetAmount
	}

	for i := range summary.Rows {
		row := &summary.Rows[i]
		if hasRevenue {
			row.Revenue = ToCrores(rawRevenue[i])
		}
		if hasOrderType {
			row.OrderTypes = fmt.Sprintf("%d Primary, %d Upgrade", row.PrimaryOrders, row.UpgradeOrders)
		}
		summary.Totals.Enrollments += row.Enrollments
		summary.Totals.PrimaryOrders += row.PrimaryOrders
		summary.Totals.UpgradeOrders += row.UpgradeOrders
	}
	if hasRevenue {
		summary.Totals.Revenue = ToCrores(totalRaw)
	}

	sort.SliceStable(summary.Rows, func(i, j int) bool {
		if summary.Rows[i].Enrollments != summary.Rows[j].Enrollments {
			return summary.Rows[i].Enrollments > summary.Rows[j].Enrollments
		}
		return summary.Rows[i].Batch < summary.Rows[j].Batch
	})
	return summary
}

// Summarize computes the headline metrics. The last-7-days count needs
// converted dates and the revenue total needs net amounts.
func Summarize(t *models.Table, anchor time.Time) models.SummaryMetrics {
	metrics := models.SummaryMetrics{TotalEnrollments: t.Len()}
	if t.Fields.Has(models.FieldConvertedDate) {
		count := 0
		if !anchor.IsZero() {
			_, count = bucketWindow(t.Records, anchor, func(*models.Enrollment) float64 { return 0 })
		}
		metrics.Last7Days = &count
	}
	if t.Fields.Has(models.FieldNetAmount) {
		var raw float64
		for i := range t.Records {
			raw += t.Records[i].NetAmount
		}
		revenue := ToCrores(raw)
		metrics.TotalRevenue = &revenue
	}
	return metrics
}

// ToCrores converts rupees to Crores.
func ToCrores(v float64) float64 {
	return v / models.CroreDivisor
}

type dayBucket struct {
	day   time.Time
	count int
	sum   float64
}

// bucketWindow groups records inside the recent window by calendar date,
// ascending, and returns the number of records that fell inside it.
func bucketWindow(records []models.Enrollment, anchor time.Time, value func(*models.Enrollment) float64) ([]dayBucket, int) {
	start, end := RecentWindow(anchor)
	byDay := make(map[int64]*dayBucket)
	total := 0
	for i := range records {
		r := &records[i]
		d := r.ConvertedDate
		if d.IsZero() || d.Before(start) || !d.Before(end) {
			continue
		}
		day := dateOnly(d)
		b, ok := byDay[day.Unix()]
		if !ok {
			b = &dayBucket{day: day}
			byDay[day.Unix()] = b
		}
		b.count++
		b.sum += value(r)
		total++
	}
	out := make([]dayBucket, 0, len(byDay))
	for _, b := range byDay {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out, total
}

func countBy(records []models.Enrollment, key func(*models.Enrollment) string) ([]string, map[string]int) {
	var order []string
	counts := make(map[string]int)
	for i := range records {
		k := key(&records[i])
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	return order, counts
}

func dateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}
