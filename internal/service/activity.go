package service

import (
	"context"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/repo"
)

// ActivityService exposes the audit trail to administrators.
type ActivityService struct {
	repo repo.ActivityRepo
}

// NewActivityService constructs an ActivityService backed by the provided ActivityRepo.
func NewActivityService(r repo.ActivityRepo) *ActivityService {
	return &ActivityService{repo: r}
}

// List returns one page of the activity log, newest first. Admin only.
func (s *ActivityService) List(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error) {
	const op = "service.ActivityService.List"

	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.repo.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, storageErr(op, err)
	}
	if entries == nil {
		entries = []domain.ActivityLogEntry{}
	}
	return entries, total, nil
}
