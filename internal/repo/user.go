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

// UserRepo defines the persistence operations for login accounts.
type UserRepo interface {
	// Create inserts an account. Returns domain.ErrConflict if the username is taken.
	Create(ctx context.Context, u domain.UserAccount) (domain.UserAccount, error)

	// CreateIfAbsent inserts an account unless the username already exists.
	// created is false when the row was left untouched.
	CreateIfAbsent(ctx context.Context, u domain.UserAccount) (created bool, err error)

	// GetByUsername returns the account for username.
	// Returns domain.ErrNotFound if it does not exist.
	GetByUsername(ctx context.Context, username string) (domain.UserAccount, error)
}

type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

const userColumns = `id, username, password_hash, role, display_name, email, created_at`

func userArgs(u domain.UserAccount) pgx.NamedArgs {
	return pgx.NamedArgs{
		"username":      u.Username,
		"password_hash": u.PasswordHash,
		"role":          string(u.Role),
		"display_name":  u.DisplayName,
		"email":         u.Email,
	}
}

func (r *pgUserRepo) Create(ctx context.Context, u domain.UserAccount) (domain.UserAccount, error) {
	q := `
		INSERT INTO users (username, password_hash, role, display_name, email)
		VALUES (@username, @password_hash, @role, @display_name, @email)
		RETURNING ` + userColumns

	result, err := scanUser(r.db.QueryRow(ctx, q, userArgs(u)))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.UserAccount{}, fmt.Errorf("repo.UserRepo.Create: username %q: %w", u.Username, domain.ErrConflict)
		}
		return domain.UserAccount{}, fmt.Errorf("repo.UserRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgUserRepo) CreateIfAbsent(ctx context.Context, u domain.UserAccount) (bool, error) {
	const q = `
		INSERT INTO users (username, password_hash, role, display_name, email)
		VALUES (@username, @password_hash, @role, @display_name, @email)
		ON CONFLICT (username) DO NOTHING`

	tag, err := r.db.Exec(ctx, q, userArgs(u))
	if err != nil {
		return false, fmt.Errorf("repo.UserRepo.CreateIfAbsent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgUserRepo) GetByUsername(ctx context.Context, username string) (domain.UserAccount, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = @username`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"username": username}))
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("repo.UserRepo.GetByUsername: %w", err)
	}
	return result, nil
}

func scanUser(s scanner) (domain.UserAccount, error) {
	var (
		u    domain.UserAccount
		id   pgtype.UUID
		role string
	)
	err := s.Scan(&id, &u.Username, &u.PasswordHash, &role, &u.DisplayName, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserAccount{}, domain.ErrNotFound
		}
		return domain.UserAccount{}, err
	}
	u.ID = uuid.UUID(id.Bytes)
	u.Role = domain.Role(role)
	return u, nil
}
