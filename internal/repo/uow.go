package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repos is the set of repositories bound to one transaction.
type Repos struct {
	Visits   VisitRepo
	Activity ActivityRepo
}

// UnitOfWork runs fn inside a single transaction.
type UnitOfWork interface {
	// Do commits when fn returns nil and rolls back otherwise.
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error

	// ReadSnapshot runs fn in a read-only REPEATABLE READ transaction, so
	// every query inside fn sees the same committed state.
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// beginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx. Beginning on
// a pgx.Tx opens a savepoint, which lets tests run a UnitOfWork inside a
// rolled-back outer transaction.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// txBeginner is the part of *pgxpool.Pool and *pgx.Conn that accepts
// transaction options. pgx.Tx does not implement it.
type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

var snapshotOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

type pgUnitOfWork struct {
	b beginner
}

// NewUnitOfWork constructs a UnitOfWork that opens transactions on b.
func NewUnitOfWork(b beginner) UnitOfWork {
	return &pgUnitOfWork{b: b}
}

func bind(ctx context.Context, fn func(ctx context.Context, r Repos) error) func(pgx.Tx) error {
	return func(tx pgx.Tx) error {
		return fn(ctx, Repos{
			Visits:   NewVisitRepo(tx),
			Activity: NewActivityRepo(tx),
		})
	}
}

func (u *pgUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	if err := pgx.BeginFunc(ctx, u.b, bind(ctx, fn)); err != nil {
		return fmt.Errorf("repo.UnitOfWork.Do: %w", err)
	}
	return nil
}

// ReadSnapshot on a pgx.Tx runs in a savepoint and inherits the outer
// transaction's isolation.
func (u *pgUnitOfWork) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	var err error
	if tb, ok := u.b.(txBeginner); ok {
		err = pgx.BeginTxFunc(ctx, tb, snapshotOptions, bind(ctx, fn))
	} else {
		err = pgx.BeginFunc(ctx, u.b, bind(ctx, fn))
	}
	if err != nil {
		return fmt.Errorf("repo.UnitOfWork.ReadSnapshot: %w", err)
	}
	return nil
}
