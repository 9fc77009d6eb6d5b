package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
)

type fixedSource struct {
	table  *models.Table
	source models.CacheSource
}

func (f fixedSource) Get(context.Context, bool) (*models.Table, models.CacheSource) {
	return f.table.Clone(), f.source
}

func newDashboard(t *models.Table) *DashboardService {
	t.FetchedAt = fixtureAnchor.Add(9 * time.Hour)
	return NewDashboardService(fixedSource{table: t, source: models.CacheSourceCache}, nil)
}

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection(dto.DashboardQuery{
		From:    "2024-03-01",
		To:      "2024-03-05",
		Batches: []string{" Arjuna JEE ", ""},
		Plans:   []string{"  "},
	})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), sel.From)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, 999999999, time.UTC), sel.To)
	assert.Equal(t, []string{"Arjuna JEE"}, sel.Batches)
	assert.Nil(t, sel.Plans)
}

func TestParseSelectionRejectsBadInput(t *testing.T) {
	cases := []dto.DashboardQuery{
		{From: "03/01/2024"},
		{To: "yesterday"},
		{From: "2024-03-06", To: "2024-03-05"},
	}
	for _, q := range cases {
		_, err := ParseSelection(q)
		assert.ErrorIs(t, err, appErrors.ErrValidation, "query %+v", q)
	}
}

func TestParseSelectionSameDay(t *testing.T) {
	sel, err := ParseSelection(dto.DashboardQuery{From: "2024-03-05", To: "2024-03-05"})

	require.NoError(t, err)
	assert.True(t, sel.From.Before(sel.To))
}

func TestDashboardDefaults(t *testing.T) {
	svc := newDashboard(sampleTable())

	resp, meta, err := svc.Dashboard(context.Background(), dto.DashboardQuery{})

	require.NoError(t, err)
	assert.Equal(t, models.CacheSourceCache, meta.Source)
	assert.Equal(t, fixtureAnchor.Add(9*time.Hour), meta.FetchedAt)
	assert.Equal(t, 6, resp.MatchedRows)
	assert.Equal(t, 6, resp.Summary.TotalEnrollments)
	require.NotNil(t, resp.Summary.Last7Days)
	assert.Equal(t, 4, *resp.Summary.Last7Days)
	require.NotNil(t, resp.Summary.TotalRevenue)
	assert.InDelta(t, 0.0021, *resp.Summary.TotalRevenue, 1e-12)
	assert.Equal(t, dto.DateRange{From: "2024-02-29", To: "2024-03-10"}, resp.Range)
	assert.Equal(t, dto.DateRange{From: "2024-03-04", To: "2024-03-10"}, resp.RecentWindow)
	assert.Nil(t, resp.Records)
	require.NotNil(t, resp.BatchSummary)
	assert.Equal(t, "Arjuna JEE", resp.BatchSummary.Rows[0].Batch)
	assert.Len(t, resp.TopBatches, 3)
	assert.Equal(t, "Arjuna JEE", resp.TopBatches[2].Batch)
}

func TestDashboardWindowEndsOnUpperBound(t *testing.T) {
	svc := newDashboard(sampleTable())

	resp, _, err := svc.Dashboard(context.Background(), dto.DashboardQuery{To: "2024-03-05"})

	require.NoError(t, err)
	assert.Equal(t, 3, resp.MatchedRows)
	assert.Equal(t, dto.DateRange{From: "2024-02-29", To: "2024-03-05"}, resp.Range)
	assert.Equal(t, dto.DateRange{From: "2024-02-28", To: "2024-03-05"}, resp.RecentWindow)
	require.NotNil(t, resp.Summary.Last7Days)
	assert.Equal(t, 3, *resp.Summary.Last7Days)
}

func TestDashboardFiltersAndIncludesRecords(t *testing.T) {
	svc := newDashboard(sampleTable())

	resp, _, err := svc.Dashboard(context.Background(), dto.DashboardQuery{
		Exams:          []string{"NEET"},
		IncludeRecords: true,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, resp.MatchedRows)
	require.Len(t, resp.Records, 2)
	for _, r := range resp.Records {
		assert.Equal(t, "NEET", r.Exam)
	}
	assert.Equal(t, []models.CategoryCount{{Category: "NEET", Count: 2}}, resp.ExamDistribution)
	assert.Equal(t, dto.DateRange{From: "2024-03-04", To: "2024-03-10"}, resp.RecentWindow)
}

func TestDashboardNoMatches(t *testing.T) {
	svc := newDashboard(sampleTable())

	resp, _, err := svc.Dashboard(context.Background(), dto.DashboardQuery{Batches: []string{"Unknown"}})

	require.NoError(t, err)
	assert.Equal(t, 0, resp.MatchedRows)
	assert.Equal(t, 0, resp.Summary.TotalEnrollments)
	assert.NotNil(t, resp.TopBatches)
	assert.Empty(t, resp.TopBatches)
	assert.NotNil(t, resp.RecentTrend)
	assert.Empty(t, resp.RecentTrend)
	require.NotNil(t, resp.BatchSummary)
	assert.Empty(t, resp.BatchSummary.Rows)
}

func TestDashboardEmptyTable(t *testing.T) {
	svc := NewDashboardService(fixedSource{table: models.EmptyTable(), source: models.CacheSourceEmpty}, nil)

	resp, meta, err := svc.Dashboard(context.Background(), dto.DashboardQuery{})

	require.NoError(t, err)
	assert.Equal(t, models.CacheSourceEmpty, meta.Source)
	assert.Equal(t, dto.DateRange{}, resp.Range)
	assert.Equal(t, dto.DateRange{}, resp.RecentWindow)
	require.NotNil(t, resp.Summary.Last7Days)
	assert.Equal(t, 0, *resp.Summary.Last7Days)
}

func TestDashboardRejectsInvalidDates(t *testing.T) {
	svc := newDashboard(sampleTable())

	_, _, err := svc.Dashboard(context.Background(), dto.DashboardQuery{From: "2024-13-01"})

	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestOptions(t *testing.T) {
	svc := newDashboard(sampleTable())
	ctx := context.Background()

	plans, _, err := svc.Options(ctx, DimensionPlan, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lite", "Pro"}, plans.Values)

	batches, _, err := svc.Options(ctx, DimensionBatch, "jee")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arjuna JEE"}, batches.Values)

	exams, meta, err := svc.Options(ctx, DimensionExam, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CUET", "JEE", "NEET"}, exams.Values)
	assert.Equal(t, models.CacheSourceCache, meta.Source)

	_, _, err = svc.Options(ctx, "leader", "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestOptionsMissingColumn(t *testing.T) {
	table := sampleTable()
	table.Fields = models.FieldSet(0).With(models.FieldBatch).With(models.FieldConvertedDate)
	svc := newDashboard(table)

	resp, _, err := svc.Options(context.Background(), DimensionExam, "")

	require.NoError(t, err)
	assert.NotNil(t, resp.Values)
	assert.Empty(t, resp.Values)
}
