package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/repo"
)

// ArchiveService handles the archive and delete state transitions and the
// maintenance sweep. Each change and its audit entry commit together.
type ArchiveService struct {
	uow    repo.UnitOfWork
	policy domain.VisitPolicy
	log    *slog.Logger
}

// NewArchiveService constructs an ArchiveService.
func NewArchiveService(uow repo.UnitOfWork, policy domain.VisitPolicy, log *slog.Logger) *ArchiveService {
	return &ArchiveService{uow: uow, policy: policy, log: log}
}

// Archive moves an active record to the archive.
// Returns domain.ErrNotFound if no active record with that ID exists.
func (s *ArchiveService) Archive(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error) {
	const op = "service.ArchiveService.Archive"

	actor, err := requireIdentity(ctx, op)
	if err != nil {
		return domain.CustomerVisit{}, err
	}

	var result domain.CustomerVisit
	err = s.uow.Do(ctx, func(ctx context.Context, r repo.Repos) error {
		v, err := r.Visits.Archive(ctx, id)
		if err != nil {
			return err
		}
		result = v
		_, err = r.Activity.Append(ctx, actor.Username, "Archived customer "+v.Name)
		return err
	})
	if err != nil {
		return domain.CustomerVisit{}, storageErr(op, err)
	}

	result.Category = s.policy.Categorize(result.VisitCount)
	return result, nil
}

// Delete removes a record, archived or not.
// Returns domain.ErrNotFound if it does not exist.
func (s *ArchiveService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.ArchiveService.Delete"

	actor, err := requireIdentity(ctx, op)
	if err != nil {
		return err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, r repo.Repos) error {
		v, err := r.Visits.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Visits.Delete(ctx, id); err != nil {
			return err
		}
		_, err = r.Activity.Append(ctx, actor.Username, "Deleted customer "+v.Name)
		return err
	})
	if err != nil {
		return storageErr(op, err)
	}
	return nil
}

// Sweep archives every active record dated before today and writes one audit
// entry with the count. Admin only; the scheduler runs it as
// domain.SystemActor.
func (s *ArchiveService) Sweep(ctx context.Context, today time.Time) (int64, error) {
	const op = "service.ArchiveService.Sweep"

	actor, err := requireAdmin(ctx, op)
	if err != nil {
		return 0, err
	}

	cutoff := domain.CivilDate(today)
	var n int64
	err = s.uow.Do(ctx, func(ctx context.Context, r repo.Repos) error {
		var err error
		n, err = r.Visits.ArchiveBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		action := fmt.Sprintf("Archived %d visits dated before %s", n, domain.FormatDate(cutoff))
		_, err = r.Activity.Append(ctx, actor.Username, action)
		return err
	})
	if err != nil {
		return 0, storageErr(op, err)
	}

	s.log.InfoContext(ctx, "archive sweep completed",
		slog.Int64("archived", n),
		slog.String("before", domain.FormatDate(cutoff)),
		slog.String("actor", actor.Username),
	)
	return n, nil
}
