package handler

import (
	"fmt"
	"net/http"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/middleware"
	"github.com/pkordes/visitbook/internal/service"
)

type archivedPage struct {
	basePage
	Table visitTable
}

type logsPage struct {
	basePage
	Entries []domain.ActivityLogEntry
	Pager   pager
}

// GetArchived handles GET /archived.
func (s *Server) GetArchived(w http.ResponseWriter, r *http.Request) {
	visits, err := s.Reports.Archived(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "archived", &archivedPage{
		basePage: basePage{Title: "Archived", Flash: r.URL.Query().Get("flash")},
		Table:    visitTable{Visits: visits},
	})
}

// GetLogs handles GET /logs?page=.
func (s *Server) GetLogs(w http.ResponseWriter, r *http.Request) {
	s.renderLogs(w, r, http.StatusOK, "", r.URL.Query().Get("flash"))
}

func (s *Server) renderLogs(w http.ResponseWriter, r *http.Request, status int, errMsg, flash string) {
	p := pageParams(r)
	entries, total, err := s.Activity.List(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, status, "logs", &logsPage{
		basePage: basePage{Title: "Activity", Error: errMsg, Flash: flash},
		Entries:  entries,
		Pager:    newPager(p, total),
	})
}

// PostUser handles POST /users.
func (s *Server) PostUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	u, err := s.Auth.Register(r.Context(), service.AccountInput{
		Username:    r.PostFormValue("username"),
		Password:    r.PostFormValue("password"),
		Role:        domain.Role(r.PostFormValue("role")),
		DisplayName: r.PostFormValue("display_name"),
		Email:       r.PostFormValue("email"),
	})
	if err != nil {
		status, _, message := classify(err)
		switch status {
		case http.StatusUnprocessableEntity:
			s.renderLogs(w, r, status, message, "")
		case http.StatusConflict:
			s.renderLogs(w, r, status, "Username is already taken.", "")
		default:
			s.fail(w, r, err)
		}
		return
	}
	http.Redirect(w, r, "/logs?flash="+urlQuery("Created user "+u.Username), http.StatusSeeOther)
}

type sweepResponse struct {
	Archived int64  `json:"archived"`
	Before   string `json:"before"`
}

// PostArchiveSweep handles POST /maintenance/archive.
func (s *Server) PostArchiveSweep(w http.ResponseWriter, r *http.Request) {
	today := s.Today()
	n, err := s.Archive.Sweep(r.Context(), today)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if middleware.WantsJSON(r) {
		writeJSON(w, http.StatusOK, sweepResponse{Archived: n, Before: domain.FormatDate(today)})
		return
	}
	msg := fmt.Sprintf("Archived %d visits dated before %s", n, domain.FormatDate(today))
	http.Redirect(w, r, "/archived?flash="+urlQuery(msg), http.StatusSeeOther)
}
