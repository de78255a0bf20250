package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pkordes/visitbook/internal/domain"
)

// ErrInvalidToken is returned for expired, tampered or malformed tokens.
var ErrInvalidToken = errors.New("invalid token")

const issuer = "visitbook"

// sessionClaims is the JWT payload. Subject carries the username.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager returns a TokenManager signing with secret. Tokens expire
// ttl after issue.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long issued tokens stay valid.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for id.
func (m *TokenManager) Issue(id domain.Identity) (string, error) {
	now := m.now()
	claims := sessionClaims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth.TokenManager.Issue: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the identity it carries.
// Any failure is reported as ErrInvalidToken.
func (m *TokenManager) Verify(token string) (domain.Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id := domain.Identity{Username: claims.Subject, Role: domain.Role(claims.Role)}
	if id.Username == "" || !id.Role.Valid() {
		return domain.Identity{}, ErrInvalidToken
	}
	return id, nil
}
