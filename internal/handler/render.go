package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkordes/visitbook/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// basePage carries the fields the shared header needs. Every page data type
// embeds it.
type basePage struct {
	Title    string
	Identity *domain.Identity
	Error    string
	Flash    string
}

func (p *basePage) base() *basePage { return p }

type pageData interface {
	base() *basePage
}

// pager drives the shared pagination links.
type pager struct {
	Page    int
	Total   int64
	HasNext bool
}

func newPager(p domain.PaginationParams, total int64) pager {
	return pager{Page: p.Page, Total: total, HasNext: p.HasNext(total)}
}

// visitTable is the data of the shared "visits" template.
type visitTable struct {
	Visits  []domain.CustomerVisit
	Actions bool
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  domain.FormatDate,
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"inc":   func(i int) int { return i + 1 },
	"dec":   func(i int) int { return i - 1 },
}

type renderer struct {
	t *template.Template
}

func newRenderer() (*renderer, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("handler: parse templates: %w", err)
	}
	return &renderer{t: t}, nil
}

// render executes the named page into a buffer first so a template failure
// becomes a clean 500 rather than a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	b := data.base()
	if id, ok := domain.IdentityFrom(r.Context()); ok {
		b.Identity = &id
	}

	var buf bytes.Buffer
	if err := s.pages.t.ExecuteTemplate(&buf, name, data); err != nil {
		s.Log.ErrorContext(r.Context(), "render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) staticFiles() http.Handler {
	return http.FileServerFS(staticFS)
}

// staticFile serves one root-level asset. The service worker must live at
// the root so its scope covers every page.
func (s *Server) staticFile(name string) http.HandlerFunc {
	sub, _ := fs.Sub(staticFS, "static")
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, sub, name)
	}
}
