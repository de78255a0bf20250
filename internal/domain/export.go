package domain

import "strconv"

// ExportColumns is the header row of the visit CSV export, in field order.
var ExportColumns = []string{
	"id", "name", "order_summary", "amount", "visit_date",
	"visit_count", "category", "notes",
}

// ExportRecord flattens v into the column order of ExportColumns.
// Amount always carries two decimal places.
func (v CustomerVisit) ExportRecord() []string {
	return []string{
		v.ID.String(),
		v.Name,
		v.OrderSummary,
		v.Amount.StringFixed(2),
		FormatDate(v.VisitDate),
		strconv.Itoa(v.VisitCount),
		string(v.Category),
		v.Notes,
	}
}
