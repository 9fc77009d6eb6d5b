package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

func TestNormalizeSheetsTwoSheets(t *testing.T) {
	table, report := NormalizeSheets(twoSheetFixture())

	require.Equal(t, 4, table.Len())
	assert.Equal(t, 2, report.SheetsLoaded)
	assert.Equal(t, 4, report.RowsLoaded)
	assert.Equal(t, 1, report.RowsDroppedNoDate)
	assert.Equal(t, 0, report.HeaderFallbackCount)
	assert.True(t, table.Fields.Has(models.FieldID, models.FieldBatch, models.FieldConvertedDate, models.FieldNetAmount))
	assert.False(t, table.Fields.Has(models.FieldExam))
	assert.True(t, table.FetchedAt.IsZero())

	assert.Equal(t, "a1", table.Records[0].ID)
	assert.Equal(t, "c1", table.Records[3].ID)
	assert.Equal(t, float64(0), table.Records[3].NetAmount)
	assert.Equal(t, time.UTC, table.Records[0].ConvertedDate.Location())
}

func TestNormalizeSheetsHeaderFallback(t *testing.T) {
	raw := []models.RawSheet{{
		Name: "Legacy",
		Rows: [][]string{
			{"plan", "Exam_2"},
			{"Pro", "JEE"},
		},
	}}

	table, report := NormalizeSheets(raw)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1, report.HeaderFallbackCount)
	assert.Equal(t, "Pro", table.Records[0].Plan)
	assert.Equal(t, "JEE", table.Records[0].Exam)
	assert.False(t, table.Fields.Has(models.FieldConvertedDate))
}

func TestNormalizeSheetsAliases(t *testing.T) {
	raw := []models.RawSheet{{
		Name: "Aliased",
		Rows: [][]string{
			{" batch_name ", "exam", "converteddate"},
			{"Arjuna JEE", "JEE", "2024-03-01"},
		},
	}}

	table, _ := NormalizeSheets(raw)

	require.Equal(t, 1, table.Len())
	assert.True(t, table.Fields.Has(models.FieldBatch, models.FieldExam))
	assert.Equal(t, "Arjuna JEE", table.Records[0].Batch)
	assert.Equal(t, "JEE", table.Records[0].Exam)
}

func TestNormalizeSheetsDropsBlankRows(t *testing.T) {
	raw := []models.RawSheet{{
		Name: "Sparse",
		Rows: [][]string{
			{"_id", "name", "converteddate"},
			{"", " ", ""},
			{"x1", "Arjuna JEE", "2024-03-01"},
			{},
		},
	}}

	table, report := NormalizeSheets(raw)

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 2, report.RowsDroppedEmpty)
}

func TestNormalizeSheetsEmptyInput(t *testing.T) {
	table, report := NormalizeSheets(nil)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, models.AllFields, table.Fields)
	assert.Equal(t, 0, report.SheetsLoaded)

	allBad := []models.RawSheet{{Name: "Bad", Rows: [][]string{{"_id", "converteddate"}, {"1", "soon"}}}}
	table, report = NormalizeSheets(allBad)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, models.AllFields, table.Fields)
	assert.Equal(t, 1, report.RowsDroppedNoDate)
}

func TestNormalizeSheetsInternsLabels(t *testing.T) {
	table, _ := NormalizeSheets(twoSheetFixture())
	assert.Equal(t, table.Records[0].Batch, table.Records[1].Batch)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"1,234.50":  1234.5,
		"₹ 4,000":   4000,
		"Rs. 250":   250,
		"INR 10":    10,
		"$7":        7,
		"":          0,
		"n/a":       0,
		"-300":      0,
		"NaN":       0,
		"1 000": 1000,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseAmount(in), in)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-10", "3/10/2024", "10 Mar 2024", "Mar 10, 2024", "2024/03/10"} {
		assert.True(t, want.Equal(ParseDate(in)), in)
	}
	withTime := ParseDate("2024-03-10 14:30:00")
	assert.Equal(t, 14, withTime.Hour())
	assert.True(t, ParseDate("yesterday").IsZero())
	assert.True(t, ParseDate("").IsZero())
}
