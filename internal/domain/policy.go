package domain

import (
	"fmt"
	"strings"
)

// VisitPolicy selects how repeat visits by the same customer name are stored.
// Exactly one policy is active per deployment.
type VisitPolicy string

const (
	// PolicyAppend inserts one row per visit. A new row's visit_count is one
	// more than the number of rows already recorded under that name,
	// archived or not. Categories use TwoTier.
	PolicyAppend VisitPolicy = "append"

	// PolicyMerge keeps one active row per name and accumulates visit_count
	// and amount into it. Categories use ThreeTier.
	PolicyMerge VisitPolicy = "merge"
)

// ParseVisitPolicy maps a configuration value onto a VisitPolicy.
func ParseVisitPolicy(s string) (VisitPolicy, error) {
	switch p := VisitPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAppend, PolicyMerge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown visit policy %q: must be %q or %q", s, PolicyAppend, PolicyMerge)
	}
}

// Categorize returns the tier for visitCount under this policy.
func (p VisitPolicy) Categorize(visitCount int) Category {
	if p == PolicyMerge {
		return ThreeTier(visitCount)
	}
	return TwoTier(visitCount)
}
