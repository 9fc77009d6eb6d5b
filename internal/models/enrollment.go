package models

import "time"

// Field identifies an optional source column of the enrollment sheets.
type Field uint32

// Known enrollment fields, in empty-schema column order.
const (
	FieldID Field = 1 << iota
	FieldBatchID
	FieldPlan
	FieldConvertedDate
	FieldBatch
	FieldNetAmount
	FieldCouponDiscount
	FieldCouponCode
	FieldCouponID
	FieldDonationAmount
	FieldExam
	FieldOrderType
	FieldBatchEligibility
	FieldStartDate
	FieldAddOnStore
	FieldLeader
	FieldType2

	fieldSentinel
)

// FieldSet is a bitmask of fields present in at least one source sheet.
type FieldSet uint32

// AllFields is the schema of the empty table.
const AllFields = FieldSet(fieldSentinel - 1)

// Has reports whether every field in f is present.
func (s FieldSet) Has(f ...Field) bool {
	for _, one := range f {
		if s&FieldSet(one) == 0 {
			return false
		}
	}
	return true
}

// With returns s extended by f.
func (s FieldSet) With(f Field) FieldSet {
	return s | FieldSet(f)
}

// Column pairs a field with its canonical sheet header.
type Column struct {
	Field Field
	Name  string
}

// Columns lists the canonical sheet headers in empty-schema order.
var Columns = []Column{
	{FieldID, "_id"},
	{FieldBatchID, "batchid"},
	{FieldPlan, "plan"},
	{FieldConvertedDate, "converteddate"},
	{FieldBatch, "name"},
	{FieldNetAmount, "net_amount"},
	{FieldCouponDiscount, "coupondiscount"},
	{FieldCouponCode, "couponcode"},
	{FieldCouponID, "couponid"},
	{FieldDonationAmount, "donationamount"},
	{FieldExam, "Exam_2"},
	{FieldOrderType, "order_type"},
	{FieldBatchEligibility, "batch_eligibility"},
	{FieldStartDate, "startdate"},
	{FieldAddOnStore, "ADD_ON_STORE"},
	{FieldLeader, "leader_fin"},
	{FieldType2, "type_2"},
}

// Order types carried by the order_type column.
const (
	OrderTypePrimary = "PRIMARY"
	OrderTypeUpgrade = "UPGRADE"
)

// Enrollment is one normalised purchase row. Monetary amounts are never negative.
type Enrollment struct {
	ID               string     `json:"_id"`
	BatchID          string     `json:"batchid"`
	Batch            string     `json:"name"`
	Exam             string     `json:"Exam_2"`
	Plan             string     `json:"plan"`
	ConvertedDate    time.Time  `json:"converteddate"`
	StartDate        *time.Time `json:"startdate,omitempty"`
	NetAmount        float64    `json:"net_amount"`
	CouponDiscount   float64    `json:"coupondiscount"`
	DonationAmount   float64    `json:"donationamount"`
	AddOnStore       float64    `json:"ADD_ON_STORE"`
	CouponCode       string     `json:"couponcode"`
	CouponID         string     `json:"couponid"`
	OrderType        string     `json:"order_type"`
	BatchEligibility string     `json:"batch_eligibility"`
	Leader           string     `json:"leader_fin"`
	Type2            string     `json:"type_2"`
}

// RawSheet is the untyped cell grid of one worksheet.
type RawSheet struct {
	Name string
	Rows [][]string
}

// Table is a normalised set of enrollments plus the fields its sources carried.
type Table struct {
	Records   []Enrollment `json:"records"`
	Fields    FieldSet     `json:"fields"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// EmptyTable returns the fixed empty-schema table.
func EmptyTable() *Table {
	return &Table{Records: []Enrollment{}, Fields: AllFields}
}

// Clone returns a deep copy the caller may mutate freely.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Fields: t.Fields, FetchedAt: t.FetchedAt, Records: make([]Enrollment, len(t.Records))}
	copy(out.Records, t.Records)
	for i := range out.Records {
		if sd := out.Records[i].StartDate; sd != nil {
			v := *sd
			out.Records[i].StartDate = &v
		}
	}
	return out
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// DateRange returns the earliest and latest converted dates, or ok=false when none exist.
func (t *Table) DateRange() (min, max time.Time, ok bool) {
	if t == nil || !t.Fields.Has(FieldConvertedDate) {
		return time.Time{}, time.Time{}, false
	}
	for _, r := range t.Records {
		if r.ConvertedDate.IsZero() {
			continue
		}
		if !ok || r.ConvertedDate.Before(min) {
			min = r.ConvertedDate
		}
		if !ok || r.ConvertedDate.After(max) {
			max = r.ConvertedDate
		}
		ok = true
	}
	return min, max, ok
}

// Value returns the typed cell of e for f, as written to the raw data export.
func (e *Enrollment) Value(f Field) interface{} {
	switch f {
	case FieldID:
		return e.ID
	case FieldBatchID:
		return e.BatchID
	case FieldPlan:
		return e.Plan
	case FieldConvertedDate:
		return e.ConvertedDate
	case FieldBatch:
		return e.Batch
	case FieldNetAmount:
		return e.NetAmount
	case FieldCouponDiscount:
		return e.CouponDiscount
	case FieldCouponCode:
		return e.CouponCode
	case FieldCouponID:
		return e.CouponID
	case FieldDonationAmount:
		return e.DonationAmount
	case FieldExam:
		return e.Exam
	case FieldOrderType:
		return e.OrderType
	case FieldBatchEligibility:
		return e.BatchEligibility
	case FieldStartDate:
		if e.StartDate == nil {
			return nil
		}
		return *e.StartDate
	case FieldAddOnStore:
		return e.AddOnStore
	case FieldLeader:
		return e.Leader
	case FieldType2:
		return e.Type2
	}
	return nil
}
