package payment

import (
	"context"
	"errors"
)

var (
	// ErrVerificationFailed means the webhook signature or payload could
	// not be verified. The event must not mutate any state.
	ErrVerificationFailed = errors.New("webhook verification failed")

	// ErrGatewayUnreachable means no payment intent could be obtained.
	// Callers should treat it as retryable; no Payment row exists.
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")

	// ErrPaymentPending means the task already has a payment in flight.
	ErrPaymentPending = errors.New("a payment for this task is already in progress")
)

// EventPaymentSucceeded is the only event kind that drives state change.
const EventPaymentSucceeded = "payment_intent.succeeded"

// Intent is a gateway-side authorized-but-unsettled charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified webhook delivery.
type Event struct {
	Kind     string
	IntentID string
}

// Gateway is the narrow payment-processor contract the core depends on.
// Nothing here is shaped like any particular provider's SDK.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, currency, description string) (Intent, error)
	VerifyWebhook(payload []byte, signatureHeader string) (Event, error)
}
