package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pkordes/visitbook/internal/domain"
)

// VisitRepo defines the persistence operations for customer visits.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type VisitRepo interface {
	// LockName takes a transaction-scoped advisory lock keyed by customer name.
	// Concurrent recordings for the same name serialize on it until the
	// surrounding transaction ends. Outside a transaction it is a no-op.
	LockName(ctx context.Context, name string) error

	// FindActiveByName returns the newest non-archived record for name.
	// Returns domain.ErrNotFound if there is none.
	FindActiveByName(ctx context.Context, name string) (domain.CustomerVisit, error)

	// CountByName counts every record for name, archived or not.
	CountByName(ctx context.Context, name string) (int, error)

	// Create inserts a new record and returns it with DB-generated fields populated.
	Create(ctx context.Context, v domain.CustomerVisit) (domain.CustomerVisit, error)

	// AddVisit folds one more visit into an existing record: visit_count+1,
	// amount+amount, visit_date and order_summary overwritten.
	// Returns domain.ErrNotFound if no record with that ID exists.
	AddVisit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, visitDate time.Time, orderSummary string) (domain.CustomerVisit, error)

	// GetByID retrieves a single record by primary key.
	// Returns domain.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error)

	// List returns the records matching f ordered by visit_date descending,
	// newest insert first within a day.
	List(ctx context.Context, f domain.VisitFilter) ([]domain.CustomerVisit, error)

	// Totals computes count and sum figures over active records relative to today.
	Totals(ctx context.Context, today time.Time) (domain.VisitTotals, error)

	// Archive flips an active record to archived and returns it.
	// Returns domain.ErrNotFound if no active record with that ID exists.
	Archive(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error)

	// ArchiveBefore archives every active record with visit_date < before and
	// returns how many rows changed.
	ArchiveBefore(ctx context.Context, before time.Time) (int64, error)

	// Delete removes a record by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgVisitRepo is the Postgres implementation of VisitRepo.
type pgVisitRepo struct {
	db db
}

// NewVisitRepo constructs a VisitRepo backed by the provided db connection.
// In production pass *pgxpool.Pool or a pgx.Tx from a UnitOfWork; in tests
// pass a pgx.Tx for rollback isolation.
func NewVisitRepo(db db) VisitRepo {
	return &pgVisitRepo{db: db}
}

// visitColumns is the SELECT/RETURNING list understood by scanVisit.
// amount is cast to text so it scans losslessly into a decimal.
const visitColumns = `id, name, order_summary, amount::text, visit_date, visit_count,
	archived, notes, created_at, updated_at`

func (r *pgVisitRepo) LockName(ctx context.Context, name string) error {
	const q = `SELECT pg_advisory_xact_lock(hashtext(@name))`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"name": name}); err != nil {
		return fmt.Errorf("repo.VisitRepo.LockName: %w", err)
	}
	return nil
}

func (r *pgVisitRepo) FindActiveByName(ctx context.Context, name string) (domain.CustomerVisit, error) {
	q := `
		SELECT ` + visitColumns + `
		FROM customer_visits
		WHERE name = @name AND NOT archived
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name})
	v, err := scanVisit(row)
	if err != nil {
		return domain.CustomerVisit{}, fmt.Errorf("repo.VisitRepo.FindActiveByName: %w", err)
	}
	return v, nil
}

func (r *pgVisitRepo) CountByName(ctx context.Context, name string) (int, error) {
	const q = `SELECT count(*) FROM customer_visits WHERE name = @name`

	var n int
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.VisitRepo.CountByName: %w", err)
	}
	return n, nil
}

// Create inserts a new visit row and returns the full persisted record.
func (r *pgVisitRepo) Create(ctx context.Context, v domain.CustomerVisit) (domain.CustomerVisit, error) {
	q := `
		INSERT INTO customer_visits (name, order_summary, amount, visit_date, visit_count, archived, notes)
		VALUES (@name, @order_summary, @amount::numeric, @visit_date, @visit_count, @archived, @notes)
		RETURNING ` + visitColumns

	args := pgx.NamedArgs{
		"name":          v.Name,
		"order_summary": v.OrderSummary,
		"amount":        v.Amount.String(),
		"visit_date":    v.VisitDate,
		"visit_count":   v.VisitCount,
		"archived":      v.Archived,
		"notes":         v.Notes,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanVisit(row)
	if err != nil {
		return domain.CustomerVisit{}, fmt.Errorf("repo.VisitRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) AddVisit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, visitDate time.Time, orderSummary string) (domain.CustomerVisit, error) {
	q := `
		UPDATE customer_visits
		SET visit_count   = visit_count + 1,
		    amount        = amount + @amount::numeric,
		    visit_date    = @visit_date,
		    order_summary = @order_summary,
		    updated_at    = now()
		WHERE id = @id
		RETURNING ` + visitColumns

	args := pgx.NamedArgs{
		"id":            id,
		"amount":        amount.String(),
		"visit_date":    visitDate,
		"order_summary": orderSummary,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanVisit(row)
	if err != nil {
		return domain.CustomerVisit{}, fmt.Errorf("repo.VisitRepo.AddVisit: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error) {
	q := `SELECT ` + visitColumns + ` FROM customer_visits WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanVisit(row)
	if err != nil {
		return domain.CustomerVisit{}, fmt.Errorf("repo.VisitRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) List(ctx context.Context, f domain.VisitFilter) ([]domain.CustomerVisit, error) {
	q := `
		SELECT ` + visitColumns + `
		FROM customer_visits
		WHERE archived = @archived
		  AND (@date::date IS NULL OR visit_date = @date::date)
		ORDER BY visit_date DESC, created_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"archived": f.Archived, "date": f.Date})
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.List: %w", err)
	}
	defer rows.Close()

	visits := []domain.CustomerVisit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.VisitRepo.List: scan: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.List: rows: %w", err)
	}
	return visits, nil
}

// Totals runs one aggregate pass. Month counting matches the "YYYY-MM" prefix
// of the ISO date; month earnings take everything on or after the first.
func (r *pgVisitRepo) Totals(ctx context.Context, today time.Time) (domain.VisitTotals, error) {
	const q = `
		SELECT
			count(*),
			COALESCE(sum(amount), 0)::text,
			count(*) FILTER (WHERE visit_date = @today),
			COALESCE(sum(amount) FILTER (WHERE visit_date = @today), 0)::text,
			count(*) FILTER (WHERE to_char(visit_date, 'YYYY-MM') = @year_month),
			COALESCE(sum(amount) FILTER (WHERE visit_date >= @month_start), 0)::text
		FROM customer_visits
		WHERE NOT archived`

	args := pgx.NamedArgs{
		"today":       today,
		"year_month":  domain.YearMonth(today),
		"month_start": domain.FirstOfMonth(today),
	}

	var (
		t                     domain.VisitTotals
		total, daily, monthly string
	)
	err := r.db.QueryRow(ctx, q, args).Scan(
		&t.TotalCount, &total,
		&t.TodayCount, &daily,
		&t.MonthlyCount, &monthly,
	)
	if err != nil {
		return domain.VisitTotals{}, fmt.Errorf("repo.VisitRepo.Totals: %w", err)
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&t.TotalEarnings, total}, {&t.DailyEarnings, daily}, {&t.MonthlyEarnings, monthly}} {
		d, err := parseNumeric(f.src)
		if err != nil {
			return domain.VisitTotals{}, fmt.Errorf("repo.VisitRepo.Totals: %w", err)
		}
		*f.dst = d
	}
	return t, nil
}

func (r *pgVisitRepo) Archive(ctx context.Context, id uuid.UUID) (domain.CustomerVisit, error) {
	q := `
		UPDATE customer_visits
		SET archived = true, updated_at = now()
		WHERE id = @id AND NOT archived
		RETURNING ` + visitColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanVisit(row)
	if err != nil {
		return domain.CustomerVisit{}, fmt.Errorf("repo.VisitRepo.Archive: %w", err)
	}
	return result, nil
}

func (r *pgVisitRepo) ArchiveBefore(ctx context.Context, before time.Time) (int64, error) {
	const q = `
		UPDATE customer_visits
		SET archived = true, updated_at = now()
		WHERE NOT archived AND visit_date < @before`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"before": before})
	if err != nil {
		return 0, fmt.Errorf("repo.VisitRepo.ArchiveBefore: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgVisitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM customer_visits WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.VisitRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VisitRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanVisit maps a single database row into a domain.CustomerVisit.
// Category is left empty; the service derives it from VisitCount.
func scanVisit(s scanner) (domain.CustomerVisit, error) {
	var (
		v         domain.CustomerVisit
		id        pgtype.UUID
		amount    string
		visitDate pgtype.Date
	)

	err := s.Scan(&id, &v.Name, &v.OrderSummary, &amount, &visitDate, &v.VisitCount,
		&v.Archived, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CustomerVisit{}, domain.ErrNotFound
		}
		return domain.CustomerVisit{}, err
	}

	v.ID = uuid.UUID(id.Bytes)
	v.VisitDate = visitDate.Time
	v.Amount, err = parseNumeric(amount)
	if err != nil {
		return domain.CustomerVisit{}, err
	}
	return v, nil
}
