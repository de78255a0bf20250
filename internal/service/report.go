package service

import (
	"context"
	"time"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/repo"
)

// ReportService computes dashboard figures over active visit records.
// It never mutates the store.
type ReportService struct {
	uow    repo.UnitOfWork
	policy domain.VisitPolicy
}

// NewReportService constructs a ReportService that reads through uow
// snapshots.
func NewReportService(uow repo.UnitOfWork, policy domain.VisitPolicy) *ReportService {
	return &ReportService{uow: uow, policy: policy}
}

// Dashboard returns the active customer list and the totals anchored to today.
// selectedDate, when non-nil, narrows the list only; totals always cover
// every active record. Both are read from one snapshot, so a visit recorded
// concurrently shows up in both or in neither.
func (s *ReportService) Dashboard(ctx context.Context, today time.Time, selectedDate *time.Time) (domain.DashboardMetrics, error) {
	const op = "service.ReportService.Dashboard"

	if _, err := requireIdentity(ctx, op); err != nil {
		return domain.DashboardMetrics{}, err
	}

	var m domain.DashboardMetrics
	err := s.uow.ReadSnapshot(ctx, func(ctx context.Context, r repo.Repos) error {
		active, err := listActive(ctx, r.Visits, selectedDate)
		if err != nil {
			return err
		}
		totals, err := r.Visits.Totals(ctx, domain.CivilDate(today))
		if err != nil {
			return err
		}
		m = domain.DashboardMetrics{VisitTotals: totals, ActiveCustomers: active}
		return nil
	})
	if err != nil {
		return domain.DashboardMetrics{}, storageErr(op, err)
	}

	m.ActiveCustomers = categorize(s.policy, m.ActiveCustomers)
	return m, nil
}

// ActiveCustomers returns active records, newest visit first, optionally
// limited to one visit date. It is the row source for both the dashboard and
// the CSV export.
func (s *ReportService) ActiveCustomers(ctx context.Context, selectedDate *time.Time) ([]domain.CustomerVisit, error) {
	const op = "service.ReportService.ActiveCustomers"

	if _, err := requireIdentity(ctx, op); err != nil {
		return nil, err
	}

	var visits []domain.CustomerVisit
	err := s.uow.ReadSnapshot(ctx, func(ctx context.Context, r repo.Repos) error {
		var err error
		visits, err = listActive(ctx, r.Visits, selectedDate)
		return err
	})
	if err != nil {
		return nil, storageErr(op, err)
	}
	return categorize(s.policy, visits), nil
}

// Archived lists archived records. Admin only.
func (s *ReportService) Archived(ctx context.Context) ([]domain.CustomerVisit, error) {
	const op = "service.ReportService.Archived"

	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}

	var visits []domain.CustomerVisit
	err := s.uow.ReadSnapshot(ctx, func(ctx context.Context, r repo.Repos) error {
		var err error
		visits, err = r.Visits.List(ctx, domain.VisitFilter{Archived: true})
		return err
	})
	if err != nil {
		return nil, storageErr(op, err)
	}
	if visits == nil {
		visits = []domain.CustomerVisit{}
	}
	return categorize(s.policy, visits), nil
}

func listActive(ctx context.Context, visits repo.VisitRepo, selectedDate *time.Time) ([]domain.CustomerVisit, error) {
	f := domain.VisitFilter{Archived: false}
	if selectedDate != nil {
		d := domain.CivilDate(*selectedDate)
		f.Date = &d
	}
	out, err := visits.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.CustomerVisit{}
	}
	return out, nil
}
