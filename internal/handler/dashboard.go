package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/service"
)

// blankItemRows is how many empty item rows a fresh visit form offers.
const blankItemRows = 3

type itemRow struct {
	Label     string
	Quantity  string
	UnitPrice string
}

type visitForm struct {
	Name      string
	VisitDate string
	Notes     string
	Rows      []itemRow
}

type dashboardPage struct {
	basePage
	Today        time.Time
	SelectedDate string
	Policy       domain.VisitPolicy
	Metrics      domain.DashboardMetrics
	Table        visitTable
	Form         visitForm
}

func blankVisitForm(today time.Time) visitForm {
	return visitForm{VisitDate: domain.FormatDate(today), Rows: make([]itemRow, blankItemRows)}
}

// dateQuery binds the optional ?date=YYYY-MM-DD query parameter. An empty
// value, as sent by a cleared date input, means no filter.
func dateQuery(r *http.Request) (*time.Time, error) {
	if r.URL.Query().Get("date") == "" {
		return nil, nil
	}
	var d *openapi_types.Date
	if err := runtime.BindQueryParameter("form", true, false, "date", r.URL.Query(), &d); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	if d == nil {
		return nil, nil
	}
	t := domain.CivilDate(d.Time)
	return &t, nil
}

// GetDashboard handles GET /dashboard?date=.
func (s *Server) GetDashboard(w http.ResponseWriter, r *http.Request) {
	selected, err := dateQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderDashboard(w, r, http.StatusOK, selected, blankVisitForm(s.Today()), "", r.URL.Query().Get("flash"))
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, selected *time.Time, form visitForm, errMsg, flash string) {
	today := s.Today()
	metrics, err := s.Reports.Dashboard(r.Context(), today, selected)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page := &dashboardPage{
		basePage: basePage{Title: "Dashboard", Error: errMsg, Flash: flash},
		Today:    today,
		Policy:   s.Visits.Policy(),
		Metrics:  metrics,
		Table:    visitTable{Visits: metrics.ActiveCustomers, Actions: true},
		Form:     form,
	}
	if selected != nil {
		page.SelectedDate = domain.FormatDate(*selected)
	}
	s.render(w, r, status, "dashboard", page)
}

// PostVisit handles POST /visits. Invalid input re-renders the dashboard with
// the submitted values and a 422.
func (s *Server) PostVisit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	form := visitForm{
		Name:      r.PostFormValue("name"),
		VisitDate: r.PostFormValue("visit_date"),
		Notes:     r.PostFormValue("notes"),
		Rows:      formRows(r),
	}

	items, err := parseItems(form.Rows)
	if err == nil {
		_, err = s.Visits.Record(r.Context(), service.RecordVisitInput{
			Name:      form.Name,
			VisitDate: form.VisitDate,
			Items:     items,
			Notes:     form.Notes,
		}, s.Today())
	}
	if err != nil {
		status, _, message := classify(err)
		if status != http.StatusUnprocessableEntity {
			s.fail(w, r, err)
			return
		}
		for len(form.Rows) < blankItemRows {
			form.Rows = append(form.Rows, itemRow{})
		}
		s.renderDashboard(w, r, status, nil, form, message, "")
		return
	}

	http.Redirect(w, r, "/dashboard?flash="+urlQuery("Visit saved for "+strings.TrimSpace(form.Name)), http.StatusSeeOther)
}

// formRows zips the parallel item/qty/price fields of the visit form.
// Rows left entirely blank are dropped.
func formRows(r *http.Request) []itemRow {
	labels := r.PostForm["item"]
	qtys := r.PostForm["qty"]
	prices := r.PostForm["price"]

	n := max(len(labels), len(qtys), len(prices))
	rows := make([]itemRow, 0, n)
	at := func(vs []string, i int) string {
		if i < len(vs) {
			return strings.TrimSpace(vs[i])
		}
		return ""
	}
	for i := 0; i < n; i++ {
		row := itemRow{Label: at(labels, i), Quantity: at(qtys, i), UnitPrice: at(prices, i)}
		if row == (itemRow{}) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// parseItems converts form rows into line items. A blank price means 0.
func parseItems(rows []itemRow) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(rows))
	for i, row := range rows {
		qty, err := strconv.Atoi(row.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: quantity must be a whole number", domain.ErrValidation, i+1)
		}
		price := decimal.Zero
		if row.UnitPrice != "" {
			price, err = decimal.NewFromString(row.UnitPrice)
			if err != nil {
				return nil, fmt.Errorf("%w: item %d: unit price must be a number", domain.ErrValidation, i+1)
			}
		}
		items = append(items, domain.LineItem{Label: row.Label, Quantity: qty, UnitPrice: price})
	}
	return items, nil
}

func visitID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed visit id", domain.ErrNotFound)
	}
	return id, nil
}

// PostArchiveVisit handles POST /visits/{id}/archive.
func (s *Server) PostArchiveVisit(w http.ResponseWriter, r *http.Request) {
	id, err := visitID(r)
	if err == nil {
		_, err = s.Archive.Archive(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard?flash="+urlQuery("Record archived"), http.StatusSeeOther)
}

// PostDeleteVisit handles POST /visits/{id}/delete.
func (s *Server) PostDeleteVisit(w http.ResponseWriter, r *http.Request) {
	id, err := visitID(r)
	if err == nil {
		err = s.Archive.Delete(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard?flash="+urlQuery("Record deleted"), http.StatusSeeOther)
}
