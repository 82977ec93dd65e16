package payment

import "time"

// Package is one purchasable offer, paid in Telegram Stars. Exactly one of
// Points or Days is set.
type Package struct {
	ID     string
	Title  string
	Desc   string
	Stars  int
	Points int
	Days   int
}

// Packages is the closed set of offers, keyed by the id carried in
// callback data and invoice payloads.
var Packages = map[string]Package{
	"points_50":   {ID: "points_50", Title: "50 Points", Desc: "Get 50 points instantly", Stars: 50, Points: 50},
	"points_100":  {ID: "points_100", Title: "100 Points", Desc: "Get 100 points (10% bonus)", Stars: 90, Points: 100},
	"points_500":  {ID: "points_500", Title: "500 Points", Desc: "Get 500 points (20% bonus)", Stars: 400, Points: 500},
	"premium_7d":  {ID: "premium_7d", Title: "7 Days Premium", Desc: "Unlimited checks for 7 days", Stars: 150, Days: 7},
	"premium_30d": {ID: "premium_30d", Title: "30 Days Premium", Desc: "Unlimited checks for 30 days", Stars: 500, Days: 30},
	"premium_6m":  {ID: "premium_6m", Title: "6 Months Premium", Desc: "Unlimited checks for 6 months (Save 17%)", Stars: 2500, Days: 180},
	"premium_1y":  {ID: "premium_1y", Title: "1 Year Premium", Desc: "Unlimited checks for 1 year (Save 25%)", Stars: 4500, Days: 365},
}

// packageOrder fixes the buy-menu ordering; map iteration is random.
var packageOrder = []string{
	"points_50", "points_100", "points_500",
	"premium_7d", "premium_30d", "premium_6m", "premium_1y",
}

// Payment is one row of the star_payments ledger.
type Payment struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	ChargeID    string     `json:"chargeId"`
	Amount      int        `json:"amount"`
	PackageType string     `json:"packageType"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
