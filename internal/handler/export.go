package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/pkordes/visitbook/internal/domain"
)

// GetExportCSV handles GET /export.csv?date=.
// The body is built in memory first so a failure mid-export returns an error
// status instead of a truncated file.
func (s *Server) GetExportCSV(w http.ResponseWriter, r *http.Request) {
	selected, err := dateQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.Export.WriteCSV(r.Context(), &buf, selected); err != nil {
		s.fail(w, r, err)
		return
	}

	name := "visits-" + domain.FormatDate(s.Today())
	if selected != nil {
		name = "visits-on-" + domain.FormatDate(*selected)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
