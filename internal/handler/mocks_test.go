package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/visitbook/internal/auth"
	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/handler"
	"github.com/pkordes/visitbook/internal/middleware"
	"github.com/pkordes/visitbook/internal/service"
)

// Each mock below is a test double for one handler interface.
// Set only the method fields your test needs.

type mockVisitRecorder struct {
	record func(ctx context.Context, in service.RecordVisitInput, today time.Time) (domain.CustomerVisit, error)
	policy domain.VisitPolicy
}

func (m *mockVisitRecorder) Record(ctx context.Context, in service.RecordVisitInput, today time.Time) (domain.CustomerVisit, error) {
	return m.record(ctx, in, today)
}
func (m *mockVisitRecorder) Policy() domain.VisitPolicy { return m.policy }

type mockReporter struct {
	dashboard func(ctx context.Context, today time.Time, selected *time.Time) (domain.DashboardMetrics, error)
	archived  func(ctx context.Context) ([]domain.CustomerVisit, error)
}

func (m *mockReporter) Dashboard(ctx context.Context, today time.Time, selected *time.Time) (domain.DashboardMetrics, error) {
	return m.dashboard(ctx, today, selected)
}
func (m *mockReporter) Archived(ctx context.Context) ([]domain.CustomerVisit, error) {
	return m.archived(ctx)
}

type mockArchiver struct {
	archive func(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error)
	delete  func(ctx context.Context, id uuid.UUID) error
	sweep   func(ctx context.Context, today time.Time) (int64, error)
}

func (m *mockArchiver) Archive(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error) {
	return m.archive(ctx, id)
}
func (m *mockArchiver) Delete(ctx context.Context, id uuid.UUID) error { return m.delete(ctx, id) }
func (m *mockArchiver) Sweep(ctx context.Context, today time.Time) (int64, error) {
	return m.sweep(ctx, today)
}

type mockExporter struct {
	writeCSV func(ctx context.Context, w io.Writer, selected *time.Time) error
}

func (m *mockExporter) WriteCSV(ctx context.Context, w io.Writer, selected *time.Time) error {
	return m.writeCSV(ctx, w, selected)
}

type mockFeedback struct {
	submit func(ctx context.Context, in service.FeedbackInput) (domain.FeedbackEntry, error)
	list   func(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error)
}

func (m *mockFeedback) Submit(ctx context.Context, in service.FeedbackInput) (domain.FeedbackEntry, error) {
	return m.submit(ctx, in)
}
func (m *mockFeedback) List(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error) {
	return m.list(ctx, p)
}

type mockActivity struct {
	list func(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error)
}

func (m *mockActivity) List(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error) {
	return m.list(ctx, p)
}

type mockAuth struct {
	login    func(ctx context.Context, username, password string) (string, domain.Identity, error)
	logout   func(ctx context.Context) error
	register func(ctx context.Context, in service.AccountInput) (domain.UserAccount, error)
}

func (m *mockAuth) Login(ctx context.Context, username, password string) (string, domain.Identity, error) {
	return m.login(ctx, username, password)
}
func (m *mockAuth) Logout(ctx context.Context) error { return m.logout(ctx) }
func (m *mockAuth) Register(ctx context.Context, in service.AccountInput) (domain.UserAccount, error) {
	return m.register(ctx, in)
}

// compile-time checks: each mock must satisfy its handler interface.
var (
	_ handler.VisitRecorder    = (*mockVisitRecorder)(nil)
	_ handler.Reporter         = (*mockReporter)(nil)
	_ handler.Archiver         = (*mockArchiver)(nil)
	_ handler.Exporter         = (*mockExporter)(nil)
	_ handler.FeedbackServicer = (*mockFeedback)(nil)
	_ handler.ActivityLister   = (*mockActivity)(nil)
	_ handler.Authenticator    = (*mockAuth)(nil)
)

// fakeVerifier accepts the tokens "staff-token" and "admin-token".
type fakeVerifier struct{}

func (fakeVerifier) Verify(token string) (domain.Identity, error) {
	switch token {
	case "staff-token":
		return domain.Identity{Username: "alice", Role: domain.RoleStaff}, nil
	case "admin-token":
		return domain.Identity{Username: "root", Role: domain.RoleAdmin}, nil
	}
	return domain.Identity{}, auth.ErrInvalidToken
}

var testToday = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// ---- helpers ---------------------------------------------------------------

// newRouter wires a Server with the given deps behind the session loader,
// the same way main.go does.
func newRouter(t *testing.T, d handler.Deps) http.Handler {
	t.Helper()
	if d.Today == nil {
		d.Today = func() time.Time { return testToday }
	}
	if d.Visits == nil {
		d.Visits = &mockVisitRecorder{policy: domain.PolicyAppend}
	}
	d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	d.SessionTTL = time.Hour

	srv, err := handler.NewServer(d)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.NewSessionLoader(fakeVerifier{}))
	srv.Mount(r)
	return r
}

// do sends req through h with the given session token ("" for anonymous).
func do(h http.Handler, req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func visitFixture(name string, amount string, count int) domain.CustomerVisit {
	return domain.CustomerVisit{
		ID:           uuid.New(),
		Name:         name,
		OrderSummary: "Coffee x2",
		Amount:       decimal.RequireFromString(amount),
		VisitDate:    testToday,
		VisitCount:   count,
		Category:     domain.TwoTier(count),
	}
}

func staticDashboard(m domain.DashboardMetrics) *mockReporter {
	return &mockReporter{
		dashboard: func(context.Context, time.Time, *time.Time) (domain.DashboardMetrics, error) {
			return m, nil
		},
	}
}
