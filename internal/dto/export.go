package dto

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Kind    string   `json:"kind" validate:"required,oneof=overall last7 revenue_trend exam_distribution revenue_by_exam batch_summary full_data"`
	Format  string   `json:"format" validate:"omitempty,oneof=xlsx csv pdf"`
	From    string   `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To      string   `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Batches []string `json:"batches,omitempty"`
	Exams   []string `json:"exams,omitempty"`
	Plans   []string `json:"plans,omitempty"`
}

// Query returns the dashboard filters embedded in the request.
func (r ExportRequest) Query() DashboardQuery {
	return DashboardQuery{From: r.From, To: r.To, Batches: r.Batches, Exams: r.Exams, Plans: r.Plans}
}

// ExportResponse describes a stored export and its signed download link.
type ExportResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Format    string `json:"format"`
	FileName  string `json:"fileName"`
	Rows      int    `json:"rows"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}
