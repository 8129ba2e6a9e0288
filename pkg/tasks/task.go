package tasks

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a task. Transitions are linear:
// open -> claimed -> completed -> approved -> paid.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
	StatusApproved  Status = "approved"
	StatusPaid      Status = "paid"
)

// Role determines which transition operations an actor may invoke.
type Role string

const (
	RoleBusiness Role = "business"
	RoleWorker   Role = "worker"
)

// Actor is an authenticated user as resolved by the identity layer.
type Actor struct {
	ID   int64
	Role Role
}

// Task represents a unit of paid work posted by a business.
type Task struct {
	ID          int64
	Title       string
	Description string
	Price       decimal.Decimal
	CreatedBy   int64
	ClaimedBy   *int64 // nil iff status is open

	Status Status

	// ProofRef is an opaque handle into external proof storage,
	// set when the claimant marks the task completed.
	ProofRef string

	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VisibleTo reports whether the task may be seen by the given user: a task
// is visible while it is open, and to its creator and claimant afterwards.
func (t Task) VisibleTo(userID int64) bool {
	if t.Status == StatusOpen {
		return true
	}
	if t.CreatedBy == userID {
		return true
	}
	return t.ClaimedBy != nil && *t.ClaimedBy == userID
}
