package service

import (
	"time"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

// ApplyFilter returns a new table holding the records of t that satisfy every
// restriction in sel. Date bounds are inclusive and only apply when t carries
// converted dates. t is never modified.
func ApplyFilter(t *models.Table, sel models.Selection) *models.Table {
	out := &models.Table{Fields: t.Fields, FetchedAt: t.FetchedAt, Records: make([]models.Enrollment, 0, len(t.Records))}
	if sel.MatchNone {
		return out
	}

	useDates := t.Fields.Has(models.FieldConvertedDate) && (!sel.From.IsZero() || !sel.To.IsZero())
	batches := toSet(sel.Batches)
	exams := toSet(sel.Exams)
	plans := toSet(sel.Plans)

	for _, rec := range t.Records {
		if useDates && !withinDates(rec.ConvertedDate, sel.From, sel.To) {
			continue
		}
		if !member(batches, rec.Batch) || !member(exams, rec.Exam) || !member(plans, rec.Plan) {
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out.Clone()
}

func withinDates(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// member treats a nil set as unrestricted.
func member(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}
