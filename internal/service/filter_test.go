package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

func TestApplyFilterIdentity(t *testing.T) {
	table := sampleTable()
	out := ApplyFilter(table, models.Selection{})
	assert.Equal(t, table.Records, out.Records)
	assert.Equal(t, table.Fields, out.Fields)

	out.Records[0].Batch = "mutated"
	assert.Equal(t, "Arjuna JEE", table.Records[0].Batch)
}

func TestApplyFilterDateBoundsInclusive(t *testing.T) {
	out := ApplyFilter(sampleTable(), models.Selection{From: day(-2), To: day(-1)})
	require.Equal(t, 2, out.Len())
	for _, r := range out.Records {
		assert.False(t, r.ConvertedDate.Before(day(-2)))
	}
}

func TestApplyFilterSetsAreConjunctive(t *testing.T) {
	out := ApplyFilter(sampleTable(), models.Selection{Exams: []string{"JEE"}, Plans: []string{"Pro"}})
	assert.Equal(t, 2, out.Len())

	out = ApplyFilter(sampleTable(), models.Selection{Batches: []string{"arjuna jee"}})
	assert.Equal(t, 0, out.Len())
}

func TestApplyFilterIgnoresDatesWithoutDateField(t *testing.T) {
	table := sampleTable()
	table.Fields = models.FieldSet(0).With(models.FieldBatch)
	out := ApplyFilter(table, models.Selection{From: day(5)})
	assert.Equal(t, table.Len(), out.Len())
}

func TestApplyFilterCombineComposition(t *testing.T) {
	table := sampleTable()
	selections := []models.Selection{
		{From: day(-7)},
		{To: day(-1), Exams: []string{"JEE", "NEET"}},
		{Batches: []string{"Arjuna JEE"}},
		{Batches: []string{"Lakshya NEET"}},
		{Plans: []string{"Pro", "none"}},
	}
	for i, a := range selections {
		for j, b := range selections {
			chained := ApplyFilter(ApplyFilter(table, a), b)
			combined := ApplyFilter(table, models.Combine(a, b))
			assert.Equal(t, chained.Records, combined.Records, "selections %d then %d", i, j)
		}
	}
}

func TestCombineDisjointSetsMatchNothing(t *testing.T) {
	sel := models.Combine(models.Selection{Batches: []string{"A"}}, models.Selection{Batches: []string{"B"}})
	assert.True(t, sel.MatchNone)
	assert.Equal(t, 0, ApplyFilter(sampleTable(), sel).Len())
}
