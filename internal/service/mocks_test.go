package service_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/repo"
)

// discardLogger is a logger for services under test.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staffCtx() context.Context {
	return domain.WithIdentity(context.Background(), domain.Identity{Username: "staff", Role: domain.RoleStaff})
}

func adminCtx() context.Context {
	return domain.WithIdentity(context.Background(), domain.Identity{Username: "admin", Role: domain.RoleAdmin})
}

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ---- memVisitRepo ----------------------------------------------------------

// memVisitRepo is an in-memory repo.VisitRepo for exercising service rules
// without a database. Rows keep insertion order; created is a logical clock.
type memVisitRepo struct {
	mu      sync.Mutex
	rows    []domain.CustomerVisit
	created int
	locked  []string
	failOn  string // method name that returns errStore
}

var _ repo.VisitRepo = (*memVisitRepo)(nil)

func (m *memVisitRepo) fail(method string) error {
	if m.failOn == method {
		return errStore
	}
	return nil
}

func (m *memVisitRepo) LockName(_ context.Context, name string) error {
	m.locked = append(m.locked, name)
	return m.fail("LockName")
}

func (m *memVisitRepo) FindActiveByName(_ context.Context, name string) (domain.CustomerVisit, error) {
	if err := m.fail("FindActiveByName"); err != nil {
		return domain.CustomerVisit{}, err
	}
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Name == name && !m.rows[i].Archived {
			return m.rows[i], nil
		}
	}
	return domain.CustomerVisit{}, domain.ErrNotFound
}

func (m *memVisitRepo) CountByName(_ context.Context, name string) (int, error) {
	if err := m.fail("CountByName"); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range m.rows {
		if r.Name == name {
			n++
		}
	}
	return n, nil
}

func (m *memVisitRepo) Create(_ context.Context, v domain.CustomerVisit) (domain.CustomerVisit, error) {
	if err := m.fail("Create"); err != nil {
		return domain.CustomerVisit{}, err
	}
	m.created++
	v.ID = uuid.New()
	v.CreatedAt = time.Unix(int64(m.created), 0).UTC()
	v.UpdatedAt = v.CreatedAt
	m.rows = append(m.rows, v)
	return v, nil
}

func (m *memVisitRepo) AddVisit(_ context.Context, id uuid.UUID, amount decimal.Decimal, visitDate time.Time, summary string) (domain.CustomerVisit, error) {
	if err := m.fail("AddVisit"); err != nil {
		return domain.CustomerVisit{}, err
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].VisitCount++
			m.rows[i].Amount = m.rows[i].Amount.Add(amount)
			m.rows[i].VisitDate = visitDate
			m.rows[i].OrderSummary = summary
			return m.rows[i], nil
		}
	}
	return domain.CustomerVisit{}, domain.ErrNotFound
}

func (m *memVisitRepo) GetByID(_ context.Context, id uuid.UUID) (domain.CustomerVisit, error) {
	if err := m.fail("GetByID"); err != nil {
		return domain.CustomerVisit{}, err
	}
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.CustomerVisit{}, domain.ErrNotFound
}

func (m *memVisitRepo) List(_ context.Context, f domain.VisitFilter) ([]domain.CustomerVisit, error) {
	if err := m.fail("List"); err != nil {
		return nil, err
	}
	out := []domain.CustomerVisit{}
	for _, r := range m.rows {
		if r.Archived != f.Archived {
			continue
		}
		if f.Date != nil && !r.VisitDate.Equal(*f.Date) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].VisitDate.Equal(out[j].VisitDate) {
			return out[i].VisitDate.After(out[j].VisitDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Totals mirrors the aggregate query: month count by "YYYY-MM" prefix,
// month earnings by visit_date >= first of month.
func (m *memVisitRepo) Totals(_ context.Context, today time.Time) (domain.VisitTotals, error) {
	if err := m.fail("Totals"); err != nil {
		return domain.VisitTotals{}, err
	}
	t := domain.VisitTotals{}
	for _, r := range m.rows {
		if r.Archived {
			continue
		}
		t.TotalCount++
		t.TotalEarnings = t.TotalEarnings.Add(r.Amount)
		if r.VisitDate.Equal(today) {
			t.TodayCount++
			t.DailyEarnings = t.DailyEarnings.Add(r.Amount)
		}
		if domain.YearMonth(r.VisitDate) == domain.YearMonth(today) {
			t.MonthlyCount++
		}
		if !r.VisitDate.Before(domain.FirstOfMonth(today)) {
			t.MonthlyEarnings = t.MonthlyEarnings.Add(r.Amount)
		}
	}
	return t, nil
}

func (m *memVisitRepo) Archive(_ context.Context, id uuid.UUID) (domain.CustomerVisit, error) {
	if err := m.fail("Archive"); err != nil {
		return domain.CustomerVisit{}, err
	}
	for i := range m.rows {
		if m.rows[i].ID == id && !m.rows[i].Archived {
			m.rows[i].Archived = true
			return m.rows[i], nil
		}
	}
	return domain.CustomerVisit{}, domain.ErrNotFound
}

func (m *memVisitRepo) ArchiveBefore(_ context.Context, before time.Time) (int64, error) {
	if err := m.fail("ArchiveBefore"); err != nil {
		return 0, err
	}
	var n int64
	for i := range m.rows {
		if !m.rows[i].Archived && m.rows[i].VisitDate.Before(before) {
			m.rows[i].Archived = true
			n++
		}
	}
	return n, nil
}

func (m *memVisitRepo) Delete(_ context.Context, id uuid.UUID) error {
	if err := m.fail("Delete"); err != nil {
		return err
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- mockActivityRepo ------------------------------------------------------

// mockActivityRepo records appended actions. listPaged is a function field
// set only by tests that need it.
type mockActivityRepo struct {
	entries   []domain.ActivityLogEntry
	appendErr error
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error)
}

var _ repo.ActivityRepo = (*mockActivityRepo)(nil)

func (m *mockActivityRepo) Append(_ context.Context, actor, action string) (domain.ActivityLogEntry, error) {
	if m.appendErr != nil {
		return domain.ActivityLogEntry{}, m.appendErr
	}
	e := domain.ActivityLogEntry{ID: uuid.New(), Actor: actor, Action: action, CreatedAt: time.Now()}
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *mockActivityRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error) {
	return m.listPaged(ctx, p)
}

func (m *mockActivityRepo) actions() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Actor + ": " + e.Action
	}
	return out
}

// ---- memUnitOfWork ---------------------------------------------------------

// memUnitOfWork runs fn against the in-memory repos. On error it restores the
// visit rows and activity entries captured before fn ran, like a rollback.
// snapshots records the VisitRepo reads made inside each ReadSnapshot call.
type memUnitOfWork struct {
	visits    *memVisitRepo
	activity  *mockActivityRepo
	calls     int
	snapshots [][]string
}

var _ repo.UnitOfWork = (*memUnitOfWork)(nil)

func newMemUnitOfWork() *memUnitOfWork {
	return uowFor(&memVisitRepo{})
}

func uowFor(store *memVisitRepo) *memUnitOfWork {
	return &memUnitOfWork{visits: store, activity: &mockActivityRepo{}}
}

func (u *memUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, r repo.Repos) error) error {
	u.calls++
	u.visits.mu.Lock()
	defer u.visits.mu.Unlock()

	rows := append([]domain.CustomerVisit(nil), u.visits.rows...)
	entries := append([]domain.ActivityLogEntry(nil), u.activity.entries...)

	if err := fn(ctx, repo.Repos{Visits: u.visits, Activity: u.activity}); err != nil {
		u.visits.rows = rows
		u.activity.entries = entries
		return err
	}
	return nil
}

func (u *memUnitOfWork) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, r repo.Repos) error) error {
	u.visits.mu.Lock()
	defer u.visits.mu.Unlock()

	u.snapshots = append(u.snapshots, nil)
	reads := &u.snapshots[len(u.snapshots)-1]
	return fn(ctx, repo.Repos{Visits: &tracedVisits{VisitRepo: u.visits, reads: reads}, Activity: u.activity})
}

// tracedVisits notes each read made through it.
type tracedVisits struct {
	repo.VisitRepo
	reads *[]string
}

func (t *tracedVisits) List(ctx context.Context, f domain.VisitFilter) ([]domain.CustomerVisit, error) {
	*t.reads = append(*t.reads, "List")
	return t.VisitRepo.List(ctx, f)
}

func (t *tracedVisits) Totals(ctx context.Context, today time.Time) (domain.VisitTotals, error) {
	*t.reads = append(*t.reads, "Totals")
	return t.VisitRepo.Totals(ctx, today)
}

// ---- mockFeedbackRepo ------------------------------------------------------

type mockFeedbackRepo struct {
	create    func(ctx context.Context, f domain.FeedbackEntry) (domain.FeedbackEntry, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error)
}

var _ repo.FeedbackRepo = (*mockFeedbackRepo)(nil)

func (m *mockFeedbackRepo) Create(ctx context.Context, f domain.FeedbackEntry) (domain.FeedbackEntry, error) {
	return m.create(ctx, f)
}
func (m *mockFeedbackRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error) {
	return m.listPaged(ctx, p)
}

// ---- mockUserRepo ----------------------------------------------------------

type mockUserRepo struct {
	create         func(ctx context.Context, u domain.UserAccount) (domain.UserAccount, error)
	createIfAbsent func(ctx context.Context, u domain.UserAccount) (bool, error)
	getByUsername  func(ctx context.Context, username string) (domain.UserAccount, error)
}

var _ repo.UserRepo = (*mockUserRepo)(nil)

func (m *mockUserRepo) Create(ctx context.Context, u domain.UserAccount) (domain.UserAccount, error) {
	return m.create(ctx, u)
}
func (m *mockUserRepo) CreateIfAbsent(ctx context.Context, u domain.UserAccount) (bool, error) {
	return m.createIfAbsent(ctx, u)
}
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (domain.UserAccount, error) {
	return m.getByUsername(ctx, username)
}
