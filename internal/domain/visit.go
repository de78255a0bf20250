// Package domain contains the core data types for the Visitbook application.
// It has no dependencies on other internal packages and is imported by every
// other internal package (repo, service, handler).
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places amounts are stored with.
const MoneyScale = 2

// MaxAmount is the largest amount one record can hold (NUMERIC(12,2)).
var MaxAmount = decimal.New(999999999999, -MoneyScale)

// OrderSummarySeparator joins rendered line items into the stored order summary.
const OrderSummarySeparator = ", "

// CustomerVisit is one recorded visit, or under the merge policy one row per
// active customer name carrying cumulative totals.
//
// Category is never persisted. Services fill it from VisitCount using the
// configured VisitPolicy each time a record is read.
type CustomerVisit struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	OrderSummary string          `json:"order_summary"`
	Amount       decimal.Decimal `json:"amount"`
	VisitDate    time.Time       `json:"visit_date"` // civil date, UTC midnight
	VisitCount   int             `json:"visit_count"`
	Category     Category        `json:"category"`
	Archived     bool            `json:"archived"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LineItem is a single ordered item on a visit.
type LineItem struct {
	Label     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns Quantity × UnitPrice.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// String renders the item as it appears in an order summary, e.g. "latte x2".
func (li LineItem) String() string {
	return fmt.Sprintf("%s x%d", li.Label, li.Quantity)
}

// TotalAmount sums the subtotals of items. An empty slice yields zero.
func TotalAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// OrderSummary renders items in input order joined by OrderSummarySeparator.
func OrderSummary(items []LineItem) string {
	parts := make([]string, len(items))
	for i, li := range items {
		parts[i] = li.String()
	}
	return strings.Join(parts, OrderSummarySeparator)
}

// VisitFilter narrows a visit listing. Date, when set, matches visit_date exactly.
type VisitFilter struct {
	Archived bool
	Date     *time.Time
}
