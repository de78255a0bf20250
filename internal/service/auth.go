package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkordes/visitbook/internal/auth"
	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/repo"
)

// MinPasswordLength applies to accounts created through Register.
const MinPasswordLength = 8

// MaxPasswordLength is the longest password bcrypt accepts, in bytes.
const MaxPasswordLength = 72

// PasswordHasher hashes and verifies stored passwords.
// Compare returns auth.ErrInvalidCredentials on a mismatch.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs session tokens for an identity.
type TokenIssuer interface {
	Issue(id domain.Identity) (string, error)
}

// AccountInput describes an account to create.
type AccountInput struct {
	Username    string
	Password    string
	Role        domain.Role
	DisplayName string
	Email       string
}

// AuthService authenticates users and manages accounts.
type AuthService struct {
	users    repo.UserRepo
	activity repo.ActivityRepo
	hasher   PasswordHasher
	tokens   TokenIssuer
	log      *slog.Logger

	// dummyHash is compared against when the username is unknown, so a
	// failed login costs the same either way.
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repo.UserRepo, activity repo.ActivityRepo, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{users: users, activity: activity, hasher: hasher, tokens: tokens, log: log}
}

// Login checks username and password and returns a session token.
// Unknown users and wrong passwords both yield domain.ErrNotAuthenticated.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, domain.Identity, error) {
	const op = "service.AuthService.Login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", domain.Identity{}, fmt.Errorf("%s: %w", op, domain.ErrNotAuthenticated)
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		if hash := s.unknownUserHash(); hash != "" {
			_ = s.hasher.Compare(hash, password)
		}
		return "", domain.Identity{}, fmt.Errorf("%s: %w", op, domain.ErrNotAuthenticated)
	}
	if err != nil {
		return "", domain.Identity{}, storageErr(op, err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return "", domain.Identity{}, fmt.Errorf("%s: %w", op, domain.ErrNotAuthenticated)
		}
		return "", domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	id := domain.Identity{Username: u.Username, Role: u.Role}
	token, err := s.tokens.Issue(id)
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.activity.Append(ctx, id.Username, "Logged in"); err != nil {
		return "", domain.Identity{}, storageErr(op, err)
	}
	return token, id, nil
}

// Logout records the end of the caller's session. Without an identity it
// does nothing.
func (s *AuthService) Logout(ctx context.Context) error {
	id, ok := domain.IdentityFrom(ctx)
	if !ok {
		return nil
	}
	if _, err := s.activity.Append(ctx, id.Username, "Logged out"); err != nil {
		return storageErr("service.AuthService.Logout", err)
	}
	return nil
}

// Register creates an account. Admin only.
// Returns domain.ErrValidation for bad input and domain.ErrConflict when the
// username is taken.
func (s *AuthService) Register(ctx context.Context, in AccountInput) (domain.UserAccount, error) {
	const op = "service.AuthService.Register"

	actor, err := requireAdmin(ctx, op)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if err := validateAccount(&in); err != nil {
		return domain.UserAccount{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(in.Password) < MinPasswordLength {
		return domain.UserAccount{}, fmt.Errorf("%s: %w: password must be at least %d characters",
			op, domain.ErrValidation, MinPasswordLength)
	}

	acct, err := s.account(in)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.users.Create(ctx, acct)
	if err != nil {
		return domain.UserAccount{}, storageErr(op, err)
	}
	if _, err := s.activity.Append(ctx, actor.Username, "Registered user "+created.Username); err != nil {
		return domain.UserAccount{}, storageErr(op, err)
	}
	return created, nil
}

// Bootstrap creates each account unless its username already exists.
// Existing accounts are left untouched, so running it on every start is safe.
func (s *AuthService) Bootstrap(ctx context.Context, accounts []AccountInput) error {
	const op = "service.AuthService.Bootstrap"

	for _, in := range accounts {
		if err := validateAccount(&in); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		acct, err := s.account(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		created, err := s.users.CreateIfAbsent(ctx, acct)
		if err != nil {
			return storageErr(op, err)
		}
		if created {
			s.log.InfoContext(ctx, "bootstrap account created",
				slog.String("username", acct.Username),
				slog.String("role", string(acct.Role)),
			)
		}
	}
	return nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("visitbook-unknown-user")
		if err != nil {
			s.log.Warn("dummy password hash failed", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AuthService) account(in AccountInput) (domain.UserAccount, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return domain.UserAccount{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		DisplayName:  in.DisplayName,
		Email:        in.Email,
	}, nil
}

// validateAccount trims in and checks the fields every account needs.
func validateAccount(in *AccountInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = domain.RoleStaff
	}

	if in.Username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if in.Password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	if len(in.Password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, MaxPasswordLength)
	}
	if !in.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role)
	}
	return nil
}
