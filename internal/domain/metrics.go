package domain

import "github.com/shopspring/decimal"

// VisitTotals holds the aggregate figures over active visit records.
// Every field is zero, never missing, when no rows match.
type VisitTotals struct {
	TotalCount      int64
	TotalEarnings   decimal.Decimal
	TodayCount      int64
	DailyEarnings   decimal.Decimal
	MonthlyCount    int64
	MonthlyEarnings decimal.Decimal
}

// DashboardMetrics is what the dashboard and the metrics endpoint render.
type DashboardMetrics struct {
	VisitTotals
	ActiveCustomers []CustomerVisit
}
