// Package handler implements the HTTP surface of Visitbook: server-rendered
// pages, the CSV export and the JSON metrics endpoint.
// All handlers are methods on Server. Methods are split into feature files
// (dashboard.go, feedback.go, admin.go, ...) but share the Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/middleware"
	"github.com/pkordes/visitbook/internal/service"
)

// The interfaces below are the business operations the handlers depend on.
// Defining them here, in the consumer package, lets handler tests inject
// mocks without touching the database or the service layer.

// VisitRecorder records visits.
type VisitRecorder interface {
	Record(ctx context.Context, in service.RecordVisitInput, today time.Time) (domain.CustomerVisit, error)
	Policy() domain.VisitPolicy
}

// Reporter computes dashboard figures and archived listings.
type Reporter interface {
	Dashboard(ctx context.Context, today time.Time, selectedDate *time.Time) (domain.DashboardMetrics, error)
	Archived(ctx context.Context) ([]domain.CustomerVisit, error)
}

// Archiver performs the archive and delete transitions and the sweep.
type Archiver interface {
	Archive(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Sweep(ctx context.Context, today time.Time) (int64, error)
}

// Exporter writes the active customer list as CSV.
type Exporter interface {
	WriteCSV(ctx context.Context, w io.Writer, selectedDate *time.Time) error
}

// FeedbackServicer records and lists feedback.
type FeedbackServicer interface {
	Submit(ctx context.Context, in service.FeedbackInput) (domain.FeedbackEntry, error)
	List(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error)
}

// ActivityLister pages through the audit trail.
type ActivityLister interface {
	List(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error)
}

// Authenticator logs users in and out and manages accounts.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, domain.Identity, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, in service.AccountInput) (domain.UserAccount, error)
}

// Deps is everything NewServer needs. Today defaults to the UTC date.
type Deps struct {
	Visits     VisitRecorder
	Reports    Reporter
	Archive    Archiver
	Export     Exporter
	Feedback   FeedbackServicer
	Activity   ActivityLister
	Auth       Authenticator
	Today      func() time.Time
	SessionTTL time.Duration
	Log        *slog.Logger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	Deps
	pages *renderer
}

// NewServer constructs the Server. It fails only if the embedded templates
// do not parse.
func NewServer(d Deps) (*Server, error) {
	if d.Today == nil {
		d.Today = func() time.Time { return domain.CivilDate(time.Now().UTC()) }
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{Deps: d, pages: pages}, nil
}

// Mount registers every route on r. Global middleware (request ID, logging,
// session loading) is the caller's concern; the identity and admin gates are
// applied here per route group.
func (s *Server) Mount(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/manifest.json", s.staticFile("manifest.json"))
	r.Get("/service-worker.js", s.staticFile("service-worker.js"))
	r.Handle("/static/*", s.staticFiles())

	r.Get("/login", s.GetLogin)
	r.Post("/login", s.PostLogin)
	r.Post("/logout", s.PostLogout)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)
		r.Get("/dashboard", s.GetDashboard)
		r.Post("/visits", s.PostVisit)
		r.Post("/visits/{id}/archive", s.PostArchiveVisit)
		r.Post("/visits/{id}/delete", s.PostDeleteVisit)
		r.Get("/export.csv", s.GetExportCSV)
		r.Get("/api/metrics", s.GetMetrics)
		r.Get("/feedback", s.GetFeedback)
		r.Post("/feedback", s.PostFeedback)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/archived", s.GetArchived)
		r.Get("/logs", s.GetLogs)
		r.Post("/users", s.PostUser)
		r.Post("/maintenance/archive", s.PostArchiveSweep)
	})
}
