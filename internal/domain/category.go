package domain

// Category is the derived tier of a customer based on cumulative visit count.
type Category string

const (
	CategoryNew     Category = "New"
	CategoryRegular Category = "Regular"
	CategoryOld     Category = "Old"
	CategoryVIP     Category = "VIP"
)

// ThreeTier is the merge-policy scheme: 10 or more visits is VIP,
// 5 or more is Regular, anything below is New.
func ThreeTier(visitCount int) Category {
	switch {
	case visitCount >= 10:
		return CategoryVIP
	case visitCount >= 5:
		return CategoryRegular
	default:
		return CategoryNew
	}
}

// TwoTier is the append-policy scheme: strictly more than 3 visits is Old.
func TwoTier(visitCount int) Category {
	if visitCount > 3 {
		return CategoryOld
	}
	return CategoryNew
}
