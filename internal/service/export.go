package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/pkordes/visitbook/internal/domain"
)

// ExportService renders the active customer list as CSV.
type ExportService struct {
	reports *ReportService
}

// NewExportService constructs an ExportService reading rows from reports.
func NewExportService(reports *ReportService) *ExportService {
	return &ExportService{reports: reports}
}

// WriteCSV writes a header line followed by one line per active record, in
// dashboard order, to w. Lines end in "\n" and the last line is terminated.
// Fields containing separators or quotes are quoted per RFC 4180.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, selectedDate *time.Time) error {
	const op = "service.ExportService.WriteCSV"

	visits, err := s.reports.ActiveCustomers(ctx, selectedDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ExportColumns); err != nil {
		return fmt.Errorf("%s: header: %w", op, err)
	}
	for _, v := range visits {
		if err := cw.Write(v.ExportRecord()); err != nil {
			return fmt.Errorf("%s: row %s: %w", op, v.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: flush: %w", op, err)
	}
	return nil
}
