package tasks

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment records one attempted charge for a task. Rows are never deleted;
// they form the audit trail of settlement.
type Payment struct {
	// ID is generated independently of the task id (UUID) so the payment
	// can be referenced before the task concludes.
	ID     string
	TaskID int64

	// IntentID is the gateway-side payment intent identifier, unique
	// across all payments. Webhook events are matched against it.
	IntentID string

	// Amount equals the task price at creation time and is immutable.
	Amount decimal.Decimal

	Status    PaymentStatus
	CreatedAt time.Time
}
