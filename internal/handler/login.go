package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/middleware"
)

type loginPage struct {
	basePage
	Next     string
	Username string
}

// GetLogin handles GET /login.
func (s *Server) GetLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := domain.IdentityFrom(r.Context()); ok {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", &loginPage{
		basePage: basePage{Title: "Log in"},
		Next:     r.URL.Query().Get("next"),
	})
}

// PostLogin handles POST /login. On success it sets the session cookie and
// redirects to ?next= (same-site paths only) or the dashboard.
func (s *Server) PostLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	next := r.PostFormValue("next")

	token, _, err := s.Auth.Login(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, domain.ErrNotAuthenticated) {
		s.render(w, r, http.StatusUnauthorized, "login", &loginPage{
			basePage: basePage{Title: "Log in", Error: "Invalid username or password."},
			Next:     next,
			Username: username,
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	http.SetCookie(w, s.sessionCookie(r, token, int(s.SessionTTL.Seconds())))
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// PostLogout handles POST /logout. It clears the cookie even if the audit
// write fails.
func (s *Server) PostLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Auth.Logout(r.Context()); err != nil {
		s.Log.ErrorContext(r.Context(), "logout audit failed", "error", err)
	}
	http.SetCookie(w, s.sessionCookie(r, "", -1))
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (s *Server) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

// safeNext accepts only local absolute paths so the login form cannot be
// used as an open redirect.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}
