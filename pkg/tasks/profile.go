package tasks

import "github.com/shopspring/decimal"

// UserProfile holds role and contact data, one-to-one with an account.
// The core consumes it as a capability lookup; registration and
// authentication live outside this service.
type UserProfile struct {
	UserID   int64
	Username string
	Role     Role
	Phone    string
	Address  string
}

// BusinessStats is a point-in-time aggregate over a business user's posted
// tasks. Derived and cached, never authoritative.
type BusinessStats struct {
	Posted          int             `json:"posted"`
	Open            int             `json:"open"`
	Claimed         int             `json:"claimed"`
	Pending         int             `json:"pending"` // completed + approved, awaiting payment
	Paid            int             `json:"paid"`
	TotalPaidAmount decimal.Decimal `json:"total_paid_amount"`
}

// WorkerStats is the worker-side aggregate over claimed tasks.
type WorkerStats struct {
	Claimed       int             `json:"claimed"`
	Completed     int             `json:"completed"` // completed + approved + paid
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}
