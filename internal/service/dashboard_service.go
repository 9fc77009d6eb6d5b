package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-dashboard-api/internal/dto"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// Option dimensions accepted by Options.
const (
	DimensionBatch = "batch"
	DimensionExam  = "exam"
	DimensionPlan  = "plan"
)

// TableSource serves the cached enrollment table.
type TableSource interface {
	Get(ctx context.Context, force bool) (*models.Table, models.CacheSource)
}

// TableView is the filtered table behind one dashboard or export request.
type TableView struct {
	Table     *models.Table
	Selection models.Selection
	Range     dto.DateRange
	Anchor    time.Time
	Meta      models.TableMeta
}

// DashboardService composes dashboard payloads from the cached table.
type DashboardService struct {
	tables TableSource
	logger *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(tables TableSource, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{tables: tables, logger: logger}
}

// ParseSelection validates the query filters. The upper date bound covers
// the whole of its day.
func ParseSelection(q dto.DashboardQuery) (models.Selection, error) {
	sel := models.Selection{
		Batches: cleanValues(q.Batches),
		Exams:   cleanValues(q.Exams),
		Plans:   cleanValues(q.Plans),
	}
	if raw := strings.TrimSpace(q.From); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return sel, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		sel.From = from
	}
	if raw := strings.TrimSpace(q.To); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return sel, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		sel.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !sel.From.IsZero() && !sel.To.IsZero() && sel.From.After(sel.To) {
		return sel, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return sel, nil
}

// View loads the table and applies the query filters. Missing bounds default
// to the earliest and latest converted dates of the whole table, and the
// recent window ends on the upper bound.
func (s *DashboardService) View(ctx context.Context, q dto.DashboardQuery) (*TableView, error) {
	sel, err := ParseSelection(q)
	if err != nil {
		return nil, err
	}
	full, source := s.tables.Get(ctx, false)

	view := &TableView{
		Table:     ApplyFilter(full, sel),
		Selection: sel,
		Meta:      models.TableMeta{Source: source, FetchedAt: full.FetchedAt},
	}
	if minDate, maxDate, ok := full.DateRange(); ok {
		view.Range = dto.DateRange{From: minDate.Format(dateLayout), To: maxDate.Format(dateLayout)}
	}
	if !sel.From.IsZero() {
		view.Range.From = sel.From.Format(dateLayout)
	}
	if !sel.To.IsZero() {
		view.Range.To = sel.To.Format(dateLayout)
	}
	if anchor, ok := WindowAnchor(full, sel); ok {
		view.Anchor = anchor
	}
	return view, nil
}

// Dashboard computes every dashboard section for q.
func (s *DashboardService) Dashboard(ctx context.Context, q dto.DashboardQuery) (*dto.DashboardResponse, models.TableMeta, error) {
	view, err := s.View(ctx, q)
	if err != nil {
		return nil, models.TableMeta{}, err
	}
	t := view.Table
	resp := &dto.DashboardResponse{
		Summary:          Summarize(t, view.Anchor),
		TopBatches:       TopBatches(t),
		RecentTrend:      RecentTrend(t, view.Anchor),
		RevenueTrend:     RevenueTrend(t, view.Anchor),
		ExamDistribution: CategoryDistribution(t),
		RevenueByExam:    TopCategoryRevenue(t),
		BatchSummary:     BuildBatchSummary(t),
		Range:            view.Range,
		MatchedRows:      t.Len(),
	}
	if !view.Anchor.IsZero() {
		start, end := RecentWindow(view.Anchor)
		resp.RecentWindow = dto.DateRange{From: start.Format(dateLayout), To: end.AddDate(0, 0, -1).Format(dateLayout)}
	}
	if q.IncludeRecords {
		resp.Records = t.Records
	}
	s.logger.Debug("dashboard computed",
		zap.Int("matched_rows", t.Len()),
		zap.String("cache_source", string(view.Meta.Source)),
	)
	return resp, view.Meta, nil
}

// Options lists the distinct values of dimension across the whole table,
// sorted, optionally narrowed by a case-insensitive substring search. Blank
// values and the "none" plan are never offered.
func (s *DashboardService) Options(ctx context.Context, dimension, search string) (*dto.OptionsResponse, models.TableMeta, error) {
	var (
		field models.Field
		value func(*models.Enrollment) string
	)
	switch dimension {
	case DimensionBatch:
		field, value = models.FieldBatch, func(r *models.Enrollment) string { return r.Batch }
	case DimensionExam:
		field, value = models.FieldExam, func(r *models.Enrollment) string { return r.Exam }
	case DimensionPlan:
		field, value = models.FieldPlan, func(r *models.Enrollment) string { return r.Plan }
	default:
		return nil, models.TableMeta{}, appErrors.Clone(appErrors.ErrValidation, "dimension must be one of batch, exam, plan")
	}

	t, source := s.tables.Get(ctx, false)
	meta := models.TableMeta{Source: source, FetchedAt: t.FetchedAt}
	resp := &dto.OptionsResponse{Dimension: dimension, Values: []string{}}
	if !t.Fields.Has(field) {
		return resp, meta, nil
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	seen := make(map[string]struct{})
	for i := range t.Records {
		v := value(&t.Records[i])
		if v == "" {
			continue
		}
		if dimension == DimensionPlan && strings.EqualFold(v, "none") {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if needle != "" && !strings.Contains(strings.ToLower(v), needle) {
			continue
		}
		resp.Values = append(resp.Values, v)
	}
	sort.Strings(resp.Values)
	return resp, meta, nil
}

func cleanValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
