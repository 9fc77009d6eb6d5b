package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

// headerKeywords mark the real header row beneath any metadata rows of a worksheet.
var headerKeywords = []string{"batchid", "_id", "name", "converteddate"}

// dateLayouts are tried in order; sheet dates carry no zone and are read as UTC.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01-02-2006",
	"2 Jan 2006",
	"02 Jan 2006 15:04:05",
	"Jan 2, 2006",
	"2-Jan-2006",
}

var amountReplacer = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", "INR", "", "$", "", ",", "", " ", "", "\u00a0", "")

// NormalizeSheets turns raw worksheet grids into one typed table. The output
// depends only on raw; FetchedAt is left for the caller to stamp.
func NormalizeSheets(raw []models.RawSheet) (*models.Table, models.NormalizeReport) {
	report := models.NormalizeReport{}
	parsed := make([]parsedSheet, 0, len(raw))
	var fields models.FieldSet

	for _, sheet := range raw {
		if len(sheet.Rows) == 0 {
			continue
		}
		ps, fallback := parseSheet(sheet)
		if fallback {
			report.HeaderFallbackCount++
		}
		fields |= ps.fields
		parsed = append(parsed, ps)
	}
	report.SheetsLoaded = len(parsed)

	if len(parsed) == 0 {
		return models.EmptyTable(), report
	}

	in := newInterner()
	hasDate := fields.Has(models.FieldConvertedDate)
	records := make([]models.Enrollment, 0)
	for _, ps := range parsed {
		for _, row := range ps.rows {
			if blankRow(row) {
				report.RowsDroppedEmpty++
				continue
			}
			rec := ps.record(row, in)
			if hasDate && rec.ConvertedDate.IsZero() {
				report.RowsDroppedNoDate++
				continue
			}
			records = append(records, rec)
		}
	}
	report.RowsLoaded = len(records)

	if len(records) == 0 {
		return models.EmptyTable(), report
	}
	return &models.Table{Records: records, Fields: fields}, report
}

type parsedSheet struct {
	columns map[models.Field]int
	fields  models.FieldSet
	rows    [][]string
}

func parseSheet(sheet models.RawSheet) (parsedSheet, bool) {
	headerIdx, found := detectHeader(sheet.Rows)

	index := make(map[string]int)
	for i, name := range sheet.Rows[headerIdx] {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	applyAliases(index)

	ps := parsedSheet{columns: make(map[models.Field]int), rows: sheet.Rows[headerIdx+1:]}
	for _, col := range models.Columns {
		if idx, ok := index[col.Name]; ok {
			ps.columns[col.Field] = idx
			ps.fields = ps.fields.With(col.Field)
		}
	}
	return ps, !found
}

// detectHeader returns the first row holding a header keyword, or row 0 when none does.
func detectHeader(rows [][]string) (int, bool) {
	for i, row := range rows {
		for _, cell := range row {
			lower := strings.ToLower(cell)
			for _, kw := range headerKeywords {
				if strings.Contains(lower, kw) {
					return i, true
				}
			}
		}
	}
	return 0, false
}

func applyAliases(index map[string]int) {
	if _, ok := index["name"]; !ok {
		if idx, ok := index["batch_name"]; ok {
			index["name"] = idx
		}
	}
	if _, ok := index["Exam_2"]; !ok {
		if idx, ok := index["exam_2"]; ok {
			index["Exam_2"] = idx
		} else if idx, ok := index["exam"]; ok {
			index["Exam_2"] = idx
		}
	}
}

func (ps parsedSheet) cell(row []string, f models.Field) string {
	idx, ok := ps.columns[f]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (ps parsedSheet) record(row []string, in *interner) models.Enrollment {
	rec := models.Enrollment{
		ID:               ps.cell(row, models.FieldID),
		BatchID:          ps.cell(row, models.FieldBatchID),
		Batch:            in.intern(ps.cell(row, models.FieldBatch)),
		Exam:             in.intern(ps.cell(row, models.FieldExam)),
		Plan:             in.intern(ps.cell(row, models.FieldPlan)),
		ConvertedDate:    ParseDate(ps.cell(row, models.FieldConvertedDate)),
		NetAmount:        ParseAmount(ps.cell(row, models.FieldNetAmount)),
		CouponDiscount:   ParseAmount(ps.cell(row, models.FieldCouponDiscount)),
		DonationAmount:   ParseAmount(ps.cell(row, models.FieldDonationAmount)),
		AddOnStore:       ParseAmount(ps.cell(row, models.FieldAddOnStore)),
		CouponCode:       in.intern(ps.cell(row, models.FieldCouponCode)),
		CouponID:         in.intern(ps.cell(row, models.FieldCouponID)),
		OrderType:        in.intern(ps.cell(row, models.FieldOrderType)),
		BatchEligibility: in.intern(ps.cell(row, models.FieldBatchEligibility)),
		Leader:           in.intern(ps.cell(row, models.FieldLeader)),
		Type2:            in.intern(ps.cell(row, models.FieldType2)),
	}
	if sd := ParseDate(ps.cell(row, models.FieldStartDate)); !sd.IsZero() {
		rec.StartDate = &sd
	}
	return rec
}

// ParseDate reads a sheet date. Unparsable input yields the zero time.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// ParseAmount reads a monetary cell. Currency marks and thousands separators
// are ignored; unparsable and negative values become 0.
func ParseAmount(value string) float64 {
	cleaned := amountReplacer.Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// interner shares one backing string per distinct label.
type interner struct {
	values map[string]string
}

func newInterner() *interner {
	return &interner{values: make(map[string]string)}
}

func (in *interner) intern(s string) string {
	if s == "" {
		return ""
	}
	if v, ok := in.values[s]; ok {
		return v
	}
	in.values[s] = s
	return s
}
