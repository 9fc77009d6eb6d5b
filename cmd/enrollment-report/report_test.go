package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

func init() {
	color.NoColor = true
}

func TestPrintBatchSummary(t *testing.T) {
	summary := &models.BatchSummary{
		Columns: []string{models.ColumnBatchName, models.ColumnTotalEnrollments, models.ColumnTotalRevenue},
		Rows: []models.BatchSummaryRow{
			{Batch: "Arjuna JEE", Enrollments: 2, Revenue: 0.0006},
			{Batch: "Udaan CUET", Enrollments: 1, Revenue: 0.0001},
		},
		Totals: models.BatchSummaryTotals{Enrollments: 3, Revenue: 0.0007},
	}
	var buf bytes.Buffer

	printBatchSummary(&buf, summary)

	out := buf.String()
	assert.Contains(t, out, "Arjuna JEE")
	assert.Contains(t, out, "0.0006")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "0.0007")
}

func TestPrintBatchSummaryWithoutBatches(t *testing.T) {
	var buf bytes.Buffer

	printBatchSummary(&buf, nil)

	assert.Contains(t, buf.String(), "no batch names")
}

func TestPrintSummaryMissingColumns(t *testing.T) {
	var buf bytes.Buffer

	printSummary(&buf, &dto.DashboardResponse{Summary: models.SummaryMetrics{TotalEnrollments: 5}, MatchedRows: 5})

	assert.Contains(t, buf.String(), "n/a")
	assert.Contains(t, buf.String(), "5")
}

func TestPrintTopBatchesRanksBusiestFirst(t *testing.T) {
	var buf bytes.Buffer

	printTopBatches(&buf, []models.BatchCount{{Batch: "Quiet", Count: 1}, {Batch: "Busy", Count: 9}})

	out := buf.String()
	assert.Less(t, bytes.Index([]byte(out), []byte("Busy")), bytes.Index([]byte(out), []byte("Quiet")))
}

func TestListFlag(t *testing.T) {
	var l listFlag
	assert.NoError(t, l.Set("Arjuna JEE, Part 2"))
	assert.NoError(t, l.Set("Udaan"))

	assert.Equal(t, listFlag{"Arjuna JEE, Part 2", "Udaan"}, l)
	assert.Equal(t, "Arjuna JEE, Part 2,Udaan", l.String())
}
