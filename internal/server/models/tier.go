package models

import "time"

// Tier is a named daily allowance. DailyLimit -1 means unlimited.
type Tier struct {
	ID          int64
	Name        string
	DailyLimit  int
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Unlimited reports whether the tier carries the unlimited sentinel.
func (t *Tier) Unlimited() bool { return t != nil && t.DailyLimit < 0 }

type DailyUsage struct {
	UserID     int64
	Date       string
	UsageCount int
}

// QuotaStatus is the outcome of a quota check. Limit and Remaining are -1
// for unlimited tiers.
type QuotaStatus struct {
	Allowed   bool
	Used      int
	Limit     int
	Remaining int
	TierName  string
	// Date is the usage day the status refers to; Refund needs the one
	// Consume returned.
	Date string
}
