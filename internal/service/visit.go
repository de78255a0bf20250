package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/repo"
)

// RecordVisitInput is one visit submission. VisitDate is an ISO date; empty
// means today.
type RecordVisitInput struct {
	Name      string
	VisitDate string
	Items     []domain.LineItem
	Notes     string
}

// VisitService records customer visits under the configured VisitPolicy.
type VisitService struct {
	uow    repo.UnitOfWork
	policy domain.VisitPolicy
	log    *slog.Logger
}

// NewVisitService constructs a VisitService. Every recording runs in its own
// unit of work.
func NewVisitService(uow repo.UnitOfWork, policy domain.VisitPolicy, log *slog.Logger) *VisitService {
	return &VisitService{uow: uow, policy: policy, log: log}
}

// Policy returns the active visit policy.
func (s *VisitService) Policy() domain.VisitPolicy {
	return s.policy
}

// Record validates in, computes the amount and order summary, and stores the
// visit. Concurrent recordings for the same name are serialized by a
// per-name lock held for the duration of the transaction.
//
// Returns domain.ErrNotAuthenticated without an identity in ctx and
// domain.ErrValidation for bad input.
func (s *VisitService) Record(ctx context.Context, in RecordVisitInput, today time.Time) (domain.CustomerVisit, error) {
	const op = "service.VisitService.Record"

	actor, err := requireIdentity(ctx, op)
	if err != nil {
		return domain.CustomerVisit{}, err
	}

	name := strings.TrimSpace(in.Name)
	visitDate, err := validateVisit(name, in.VisitDate, in.Items, today)
	if err != nil {
		return domain.CustomerVisit{}, fmt.Errorf("%s: %w", op, err)
	}

	amount := domain.TotalAmount(in.Items)
	summary := domain.OrderSummary(in.Items)

	var result domain.CustomerVisit
	err = s.uow.Do(ctx, func(ctx context.Context, r repo.Repos) error {
		if err := r.Visits.LockName(ctx, name); err != nil {
			return err
		}

		switch s.policy {
		case domain.PolicyMerge:
			existing, err := r.Visits.FindActiveByName(ctx, name)
			switch {
			case err == nil:
				if existing.Amount.Add(amount).GreaterThan(domain.MaxAmount) {
					return fmt.Errorf("%w: cumulative amount for %s would exceed %s",
						domain.ErrValidation, name, domain.MaxAmount.StringFixed(domain.MoneyScale))
				}
				result, err = r.Visits.AddVisit(ctx, existing.ID, amount, visitDate, summary)
				if err != nil {
					return err
				}
			case errors.Is(err, domain.ErrNotFound):
				result, err = r.Visits.Create(ctx, newVisit(name, summary, in.Notes, amount, visitDate, 1))
				if err != nil {
					return err
				}
			default:
				return err
			}
		default:
			prior, err := r.Visits.CountByName(ctx, name)
			if err != nil {
				return err
			}
			result, err = r.Visits.Create(ctx, newVisit(name, summary, in.Notes, amount, visitDate, prior+1))
			if err != nil {
				return err
			}
		}

		_, err := r.Activity.Append(ctx, actor.Username, "Added customer "+name)
		return err
	})
	if err != nil {
		return domain.CustomerVisit{}, storageErr(op, err)
	}

	result.Category = s.policy.Categorize(result.VisitCount)
	s.log.InfoContext(ctx, "visit recorded",
		slog.String("policy", string(s.policy)),
		slog.String("visit_id", result.ID.String()),
		slog.String("name", result.Name),
		slog.Int("visit_count", result.VisitCount),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("actor", actor.Username),
	)
	return result, nil
}

func newVisit(name, summary, notes string, amount decimal.Decimal, date time.Time, count int) domain.CustomerVisit {
	return domain.CustomerVisit{
		Name:         name,
		OrderSummary: summary,
		Amount:       amount,
		VisitDate:    date,
		VisitCount:   count,
		Notes:        strings.TrimSpace(notes),
	}
}

// validateVisit enforces the recording rules and resolves the visit date.
//   - Name must be non-empty after trimming.
//   - VisitDate must be a valid ISO date; empty means today.
//   - At least one item; every label non-empty, quantity > 0, unit price >= 0
//     in whole cents.
//   - The total fits the stored amount column.
func validateVisit(name, visitDate string, items []domain.LineItem, today time.Time) (time.Time, error) {
	if name == "" {
		return time.Time{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	date := domain.CivilDate(today)
	if strings.TrimSpace(visitDate) != "" {
		d, err := domain.ParseDate(visitDate)
		if err != nil {
			return time.Time{}, err
		}
		date = d
	}

	if len(items) == 0 {
		return time.Time{}, fmt.Errorf("%w: at least one item is required", domain.ErrValidation)
	}
	for i, li := range items {
		if strings.TrimSpace(li.Label) == "" {
			return time.Time{}, fmt.Errorf("%w: item %d: label is required", domain.ErrValidation, i+1)
		}
		if li.Quantity <= 0 {
			return time.Time{}, fmt.Errorf("%w: item %d: quantity must be positive", domain.ErrValidation, i+1)
		}
		if li.UnitPrice.IsNegative() {
			return time.Time{}, fmt.Errorf("%w: item %d: unit price must not be negative", domain.ErrValidation, i+1)
		}
		if !li.UnitPrice.Equal(li.UnitPrice.Round(domain.MoneyScale)) {
			return time.Time{}, fmt.Errorf("%w: item %d: unit price must be in whole cents", domain.ErrValidation, i+1)
		}
	}
	if domain.TotalAmount(items).GreaterThan(domain.MaxAmount) {
		return time.Time{}, fmt.Errorf("%w: amount must not exceed %s",
			domain.ErrValidation, domain.MaxAmount.StringFixed(domain.MoneyScale))
	}
	return date, nil
}
