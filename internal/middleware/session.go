package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkordes/visitbook/internal/domain"
)

// SessionCookie is the name of the cookie holding the signed session token.
const SessionCookie = "visitbook_session"

// LoginPath is where unauthenticated page requests are redirected.
const LoginPath = "/login"

// TokenVerifier turns a session token into the identity it was issued for.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// NewSessionLoader returns a middleware that reads the session token from the
// SessionCookie cookie or an "Authorization: Bearer" header and, if it
// verifies, stores the identity in the request context via
// domain.WithIdentity. Missing or invalid tokens leave the request anonymous;
// the gates below decide what anonymous callers may reach.
func NewSessionLoader(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					token = c.Value
				}
			}
			if token != "" {
				if id, err := v.Verify(token); err == nil {
					r = r.WithContext(domain.WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// RequireIdentity rejects anonymous requests. Page requests are redirected
// to LoginPath with the original path in ?next=; API requests get 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := domain.IdentityFrom(r.Context()); !ok {
			denyAnonymous(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin is RequireIdentity plus a 403 for non-admin identities.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := domain.IdentityFrom(r.Context())
		if !ok {
			denyAnonymous(w, r)
			return
		}
		if !id.IsAdmin() {
			if WantsJSON(r) {
				writeError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func denyAnonymous(w http.ResponseWriter, r *http.Request) {
	if WantsJSON(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "login required")
		return
	}
	target := LoginPath
	if r.Method == http.MethodGet && r.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// WantsJSON reports whether r targets the JSON API rather than a page.
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: code, Message: message}})
}
