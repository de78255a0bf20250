// Package service contains the business logic for Visitbook.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"

	"github.com/pkordes/visitbook/internal/domain"
)

// requireIdentity returns the acting identity or domain.ErrNotAuthenticated.
func requireIdentity(ctx context.Context, op string) (domain.Identity, error) {
	id, ok := domain.IdentityFrom(ctx)
	if !ok {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, domain.ErrNotAuthenticated)
	}
	return id, nil
}

// requireAdmin is requireIdentity plus the admin role check.
func requireAdmin(ctx context.Context, op string) (domain.Identity, error) {
	id, err := requireIdentity(ctx, op)
	if err != nil {
		return domain.Identity{}, err
	}
	if !id.IsAdmin() {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, domain.ErrForbidden)
	}
	return id, nil
}

// storageErr wraps a repo failure for op, tagging it with domain.ErrStorage
// unless it is already a domain sentinel.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, domain.StorageError(err))
}

// categorize fills Category on every visit from its VisitCount.
func categorize(p domain.VisitPolicy, visits []domain.CustomerVisit) []domain.CustomerVisit {
	for i := range visits {
		visits[i].Category = p.Categorize(visits[i].VisitCount)
	}
	return visits
}
