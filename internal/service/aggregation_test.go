package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

func TestTopBatchesAscendingAndCapped(t *testing.T) {
	table := &models.Table{Fields: models.AllFields}
	for i := 0; i < 20; i++ {
		for n := 0; n <= i; n++ {
			table.Records = append(table.Records, enrollment(fmt.Sprintf("Batch %02d", i), "JEE", "Pro", day(0), 1))
		}
	}

	top := TopBatches(table)

	require.Len(t, top, TopBatchLimit)
	assert.Equal(t, "Batch 05", top[0].Batch)
	assert.Equal(t, "Batch 19", top[len(top)-1].Batch)
	assert.Equal(t, 20, top[len(top)-1].Count)
}

func TestBatchCountsTiesByName(t *testing.T) {
	table := &models.Table{Fields: models.AllFields, Records: []models.Enrollment{
		enrollment("Zeta", "", "", day(0), 0),
		enrollment("Alpha", "", "", day(0), 0),
	}}
	counts := BatchCounts(table)
	require.Len(t, counts, 2)
	assert.Equal(t, "Alpha", counts[0].Batch)
}

func TestRecentTrendSparseWindow(t *testing.T) {
	table := sampleTable()
	anchor, ok := WindowAnchor(table, models.Selection{})
	require.True(t, ok)
	assert.True(t, anchor.Equal(day(0)))

	trend := RecentTrend(table, anchor)

	require.Len(t, trend, 4)
	assert.True(t, trend[0].Date.Equal(day(-6)))
	assert.True(t, trend[3].Date.Equal(day(0)))
	total := 0
	for _, d := range trend {
		total += d.Count
	}
	assert.Equal(t, 4, total)
}

func TestWindowAnchorPrefersSelectionEnd(t *testing.T) {
	anchor, ok := WindowAnchor(sampleTable(), models.Selection{To: day(-5)})
	require.True(t, ok)
	assert.True(t, anchor.Equal(day(-5)))

	trend := RecentTrend(sampleTable(), anchor)
	require.Len(t, trend, 2)
	assert.True(t, trend[0].Date.Equal(day(-10)))
	assert.True(t, trend[1].Date.Equal(day(-7)))
}

func TestRevenueTrendScaling(t *testing.T) {
	trend := RevenueTrend(sampleTable(), day(0))
	require.Len(t, trend, 4)
	assert.Equal(t, 4000/models.CroreDivisor, trend[3].Revenue)
	assert.Equal(t, 2000/models.CroreDivisor, trend[0].Revenue)
}

func TestCategoryAggregates(t *testing.T) {
	table := sampleTable()

	dist := CategoryDistribution(table)
	require.Len(t, dist, 3)
	assert.Equal(t, models.CategoryCount{Category: "JEE", Count: 3}, dist[0])
	assert.Equal(t, models.CategoryCount{Category: "CUET", Count: 1}, dist[2])

	revenue := TopCategoryRevenue(table)
	require.Len(t, revenue, 3)
	assert.Equal(t, "JEE", revenue[0].Category)
	assert.Equal(t, 10000/models.CroreDivisor, revenue[0].Revenue)
	assert.Equal(t, "NEET", revenue[1].Category)
}

func TestBuildBatchSummary(t *testing.T) {
	table := sampleTable()
	table.Records[0].Leader = ""
	table.Records[1].Leader = "Meera"
	table.Records[0].OrderType = models.OrderTypePrimary
	table.Records[1].OrderType = models.OrderTypeUpgrade
	table.Records[2].OrderType = models.OrderTypePrimary

	summary := BuildBatchSummary(table)

	require.NotNil(t, summary)
	assert.Equal(t, []string{
		models.ColumnBatchName, models.ColumnTotalEnrollments, models.ColumnExamCategory,
		models.ColumnTotalRevenue, models.ColumnLeader, models.ColumnOrderTypes,
	}, summary.Columns)
	require.Len(t, summary.Rows, 3)

	first := summary.Rows[0]
	assert.Equal(t, "Arjuna JEE", first.Batch)
	assert.Equal(t, 3, first.Enrollments)
	assert.Equal(t, "Meera", first.Leader)
	assert.Equal(t, "2 Primary, 1 Upgrade", first.OrderTypes)
	assert.Equal(t, 10000/models.CroreDivisor, first.Revenue)

	assert.Equal(t, table.Len(), summary.Totals.Enrollments)
	assert.Equal(t, 21000/models.CroreDivisor, summary.Totals.Revenue)
	assert.Equal(t, 2, summary.Totals.PrimaryOrders)
}

func TestBuildBatchSummaryCountsBlankBatch(t *testing.T) {
	table := sampleTable()
	table.Records = append(table.Records, enrollment("", "JEE", "Pro", day(0), 0))

	summary := BuildBatchSummary(table)

	assert.Equal(t, table.Len(), summary.Totals.Enrollments)
}

func TestSummarize(t *testing.T) {
	metrics := Summarize(sampleTable(), day(0))
	assert.Equal(t, 6, metrics.TotalEnrollments)
	require.NotNil(t, metrics.Last7Days)
	assert.Equal(t, 4, *metrics.Last7Days)
	require.NotNil(t, metrics.TotalRevenue)
	assert.Equal(t, 21000/models.CroreDivisor, *metrics.TotalRevenue)
}

func TestAggregatesWithoutMonetaryColumn(t *testing.T) {
	table := sampleTable()
	table.Fields = models.AllFields &^ models.FieldSet(models.FieldNetAmount)

	assert.Nil(t, RevenueTrend(table, day(0)))
	assert.Nil(t, TopCategoryRevenue(table))
	assert.Nil(t, Summarize(table, day(0)).TotalRevenue)
	assert.NotEmpty(t, TopBatches(table))
	assert.NotEmpty(t, CategoryDistribution(table))
	assert.Len(t, RecentTrend(table, day(0)), 4)

	summary := BuildBatchSummary(table)
	assert.False(t, summary.HasColumn(models.ColumnTotalRevenue))
	assert.Equal(t, table.Len(), summary.Totals.Enrollments)
}

func TestAggregatesOnEmptySelection(t *testing.T) {
	table := ApplyFilter(sampleTable(), models.Selection{From: day(30), To: day(40)})
	require.Equal(t, 0, table.Len())

	anchor, ok := WindowAnchor(table, models.Selection{From: day(30), To: day(40)})
	require.True(t, ok)

	assert.Empty(t, TopBatches(table))
	assert.NotNil(t, TopBatches(table))
	assert.Empty(t, RecentTrend(table, anchor))
	assert.Empty(t, RevenueTrend(table, anchor))
	assert.Empty(t, CategoryDistribution(table))
	assert.Empty(t, TopCategoryRevenue(table))
	summary := BuildBatchSummary(table)
	assert.Empty(t, summary.Rows)
	assert.Equal(t, 0, summary.Totals.Enrollments)
	assert.Equal(t, 0, *Summarize(table, anchor).Last7Days)
}

func TestEndToEndTwoSheets(t *testing.T) {
	table, _ := NormalizeSheets(twoSheetFixture())
	require.Equal(t, 4, table.Len())

	total := 0
	for _, b := range TopBatches(table) {
		total += b.Count
	}
	assert.Equal(t, 4, total)

	anchor, ok := WindowAnchor(table, models.Selection{})
	require.True(t, ok)
	var revenue float64
	for _, d := range RevenueTrend(table, anchor) {
		revenue += d.Revenue
	}
	assert.InDelta(t, 300/models.CroreDivisor, revenue, 1e-15)
	assert.Equal(t, 300/models.CroreDivisor, *Summarize(table, anchor).TotalRevenue)
}
