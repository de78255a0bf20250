package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role gates access to admin-only views.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// UserAccount is a staff or admin login. PasswordHash is a bcrypt hash and
// is never rendered.
type UserAccount struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         Role
	DisplayName  string
	Email        string
	CreatedAt    time.Time
}

// Identity is the authenticated caller of a request.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx by WithIdentity.
// ok is false when the request is unauthenticated.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.Username == "" {
		return Identity{}, false
	}
	return id, true
}
