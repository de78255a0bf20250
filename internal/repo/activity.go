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

// ActivityRepo defines the persistence operations for the audit trail.
// Entries are append-only.
type ActivityRepo interface {
	// Append records one action by actor.
	Append(ctx context.Context, actor, action string) (domain.ActivityLogEntry, error)

	// ListPaged returns one page of entries, newest first, and the total count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error)
}

// pgActivityRepo is the Postgres implementation of ActivityRepo.
type pgActivityRepo struct {
	db db
}

// NewActivityRepo constructs an ActivityRepo backed by the provided db connection.
func NewActivityRepo(db db) ActivityRepo {
	return &pgActivityRepo{db: db}
}

func (r *pgActivityRepo) Append(ctx context.Context, actor, action string) (domain.ActivityLogEntry, error) {
	const q = `
		INSERT INTO activity_log (actor, action)
		VALUES (@actor, @action)
		RETURNING id, actor, action, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"actor": actor, "action": action})
	e, err := scanActivity(row)
	if err != nil {
		return domain.ActivityLogEntry{}, fmt.Errorf("repo.ActivityRepo.Append: %w", err)
	}
	return e, nil
}

// ListPaged uses a window count so the page and the total come back in one
// round trip. An empty page past the end reports total 0.
func (r *pgActivityRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.ActivityLogEntry, int64, error) {
	const q = `
		SELECT id, actor, action, created_at, count(*) OVER ()
		FROM activity_log
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ActivityRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	var (
		entries = []domain.ActivityLogEntry{}
		total   int64
	)
	for rows.Next() {
		var (
			e  domain.ActivityLogEntry
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &e.Actor, &e.Action, &e.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("repo.ActivityRepo.ListPaged: scan: %w", err)
		}
		e.ID = uuid.UUID(id.Bytes)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ActivityRepo.ListPaged: rows: %w", err)
	}
	return entries, total, nil
}

func scanActivity(s scanner) (domain.ActivityLogEntry, error) {
	var (
		e  domain.ActivityLogEntry
		id pgtype.UUID
	)
	if err := s.Scan(&id, &e.Actor, &e.Action, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ActivityLogEntry{}, domain.ErrNotFound
		}
		return domain.ActivityLogEntry{}, err
	}
	e.ID = uuid.UUID(id.Bytes)
	return e, nil
}
