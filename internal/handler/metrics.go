package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/visitbook/internal/domain"
)

// visitJSON is the wire form of a CustomerVisit: amounts as fixed two-place
// strings, dates as YYYY-MM-DD.
type visitJSON struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	OrderSummary string          `json:"order_summary"`
	Amount       string          `json:"amount"`
	VisitDate    string          `json:"visit_date"`
	VisitCount   int             `json:"visit_count"`
	Category     domain.Category `json:"category"`
	Archived     bool            `json:"archived"`
	Notes        string          `json:"notes,omitempty"`
}

type metricsResponse struct {
	Today           string      `json:"today"`
	SelectedDate    string      `json:"selected_date,omitempty"`
	TotalCount      int64       `json:"total_count"`
	TotalEarnings   string      `json:"total_earnings"`
	TodayCount      int64       `json:"today_count"`
	DailyEarnings   string      `json:"daily_earnings"`
	MonthlyCount    int64       `json:"monthly_count"`
	MonthlyEarnings string      `json:"monthly_earnings"`
	ActiveCustomers []visitJSON `json:"active_customers"`
}

func toVisitJSON(v domain.CustomerVisit) visitJSON {
	return visitJSON{
		ID:           v.ID,
		Name:         v.Name,
		OrderSummary: v.OrderSummary,
		Amount:       v.Amount.StringFixed(2),
		VisitDate:    domain.FormatDate(v.VisitDate),
		VisitCount:   v.VisitCount,
		Category:     v.Category,
		Archived:     v.Archived,
		Notes:        v.Notes,
	}
}

func toMetricsResponse(today time.Time, selected *time.Time, m domain.DashboardMetrics) metricsResponse {
	resp := metricsResponse{
		Today:           domain.FormatDate(today),
		TotalCount:      m.TotalCount,
		TotalEarnings:   m.TotalEarnings.StringFixed(2),
		TodayCount:      m.TodayCount,
		DailyEarnings:   m.DailyEarnings.StringFixed(2),
		MonthlyCount:    m.MonthlyCount,
		MonthlyEarnings: m.MonthlyEarnings.StringFixed(2),
		ActiveCustomers: make([]visitJSON, 0, len(m.ActiveCustomers)),
	}
	if selected != nil {
		resp.SelectedDate = domain.FormatDate(*selected)
	}
	for _, v := range m.ActiveCustomers {
		resp.ActiveCustomers = append(resp.ActiveCustomers, toVisitJSON(v))
	}
	return resp
}

// GetMetrics handles GET /api/metrics?date=.
func (s *Server) GetMetrics(w http.ResponseWriter, r *http.Request) {
	selected, err := dateQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}})
		return
	}

	today := s.Today()
	m, err := s.Reports.Dashboard(r.Context(), today, selected)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsResponse(today, selected, m))
}

func urlQuery(s string) string {
	return url.QueryEscape(s)
}
