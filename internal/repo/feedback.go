package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/visitbook/internal/domain"
)

// FeedbackRepo defines the persistence operations for customer feedback.
type FeedbackRepo interface {
	// Create inserts an entry and returns it with DB-generated fields populated.
	Create(ctx context.Context, f domain.FeedbackEntry) (domain.FeedbackEntry, error)

	// ListPaged returns one page of entries, newest first, and the total count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error)
}

type pgFeedbackRepo struct {
	db db
}

// NewFeedbackRepo constructs a FeedbackRepo backed by the provided db connection.
func NewFeedbackRepo(db db) FeedbackRepo {
	return &pgFeedbackRepo{db: db}
}

func (r *pgFeedbackRepo) Create(ctx context.Context, f domain.FeedbackEntry) (domain.FeedbackEntry, error) {
	const q = `
		INSERT INTO feedback (name, order_ref, rating, comment)
		VALUES (@name, @order_ref, @rating, @comment)
		RETURNING id, name, order_ref, rating, comment, created_at`

	args := pgx.NamedArgs{
		"name":      f.Name,
		"order_ref": f.OrderRef,
		"rating":    f.Rating,
		"comment":   f.Comment,
	}

	result, err := scanFeedback(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.FeedbackEntry{}, fmt.Errorf("repo.FeedbackRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgFeedbackRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.FeedbackEntry, int64, error) {
	const countQ = `SELECT count(*) FROM feedback`
	const q = `
		SELECT id, name, order_ref, rating, comment, created_at
		FROM feedback
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.FeedbackRepo.ListPaged: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.FeedbackRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	entries := []domain.FeedbackEntry{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.FeedbackRepo.ListPaged: scan: %w", err)
		}
		entries = append(entries, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.FeedbackRepo.ListPaged: rows: %w", err)
	}
	return entries, total, nil
}

func scanFeedback(s scanner) (domain.FeedbackEntry, error) {
	var (
		f      domain.FeedbackEntry
		id     pgtype.UUID
		rating int16
	)
	if err := s.Scan(&id, &f.Name, &f.OrderRef, &rating, &f.Comment, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FeedbackEntry{}, domain.ErrNotFound
		}
		return domain.FeedbackEntry{}, err
	}
	f.ID = uuid.UUID(id.Bytes)
	f.Rating = int(rating)
	return f, nil
}
