package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/repo"
)

// FeedbackInput is one feedback form submission.
type FeedbackInput struct {
	Name     string
	OrderRef string
	Rating   int
	Comment  string
}

// FeedbackService records and lists customer feedback.
type FeedbackService struct {
	repo repo.FeedbackRepo
}

// NewFeedbackService constructs a FeedbackService backed by the provided FeedbackRepo.
func NewFeedbackService(r repo.FeedbackRepo) *FeedbackService {
	return &FeedbackService{repo: r}
}

// Submit validates and stores a feedback entry.
// Returns domain.ErrValidation for an empty name or a rating outside
// [domain.MinRating, domain.MaxRating].
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (domain.FeedbackEntry, error) {
	const op = "service.FeedbackService.Submit"

	if _, err := requireIdentity(ctx, op); err != nil {
		return domain.FeedbackEntry{}, err
	}

	entry := domain.FeedbackEntry{
		Name:     strings.TrimSpace(in.Name),
		OrderRef: strings.TrimSpace(in.OrderRef),
		Rating:   in.Rating,
		Comment:  strings.TrimSpace(in.Comment),
	}
	if entry.Name == "" {
		return domain.FeedbackEntry{}, fmt.Errorf("%s: %w: name is required", op, domain.ErrValidation)
	}
	if entry.Rating < domain.MinRating || entry.Rating > domain.MaxRating {
		return domain.FeedbackEntry{}, fmt.Errorf("%s: %w: rating must be between %d and %d",
			op, domain.ErrValidation, domain.MinRating, domain.MaxRating)
	}

	result, err := s.repo.Create(ctx, entry)
	if err != nil {
		return domain.FeedbackEntry{}, storageErr(op, err)
	}
	return result, nil
}

// List returns one page of feedback, newest first, and the total count.
func (s *FeedbackService) List(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error) {
	const op = "service.FeedbackService.List"

	if _, err := requireIdentity(ctx, op); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.repo.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, storageErr(op, err)
	}
	if entries == nil {
		entries = []domain.FeedbackEntry{}
	}
	return entries, total, nil
}
