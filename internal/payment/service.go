// Package payment covers the two halves of getting a task paid: initiating
// a charge intent with the gateway, and reconciling the asynchronous
// webhook that reports settlement. Reconciliation is idempotent: the same
// event can arrive late, out of order, or many times without
// double-notifying or double-counting.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/metrics"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

// TaskAuthorizer runs the pay operation's preconditions.
type TaskAuthorizer interface {
	PayableTask(ctx context.Context, actor tasks.Actor, id int64) (tasks.Task, error)
}

// Notifier receives fire-and-forget notifications.
type Notifier interface {
	Send(ctx context.Context, n tasks.Notification)
}

// CacheInvalidator evicts derived aggregates for the users a task touches.
type CacheInvalidator interface {
	InvalidateTask(t tasks.Task)
}

// Checkout is what the initiating business user needs to finish the charge
// client-side.
type Checkout struct {
	PaymentID    string
	ClientSecret string
}

type Service struct {
	store      store.PaymentStore
	authorizer TaskAuthorizer
	gateway    Gateway
	notifier   Notifier
	cache      CacheInvalidator
	metrics    *metrics.Metrics
	currency   string
}

func NewService(st store.PaymentStore, authorizer TaskAuthorizer, gateway Gateway, notifier Notifier, cache CacheInvalidator, m *metrics.Metrics, currency string) *Service {
	return &Service{
		store:      st,
		authorizer: authorizer,
		gateway:    gateway,
		notifier:   notifier,
		cache:      cache,
		metrics:    m,
		currency:   currency,
	}
}

// minorUnits converts a decimal price to the gateway's integer minor-unit
// representation (e.g. 500.00 -> 50000).
func minorUnits(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).IntPart()
}

// Initiate requests a charge intent for an approved task and records a
// pending Payment. The gateway call happens before any row is written or
// locked, keeping lock hold times bounded; the pending-payment guard is
// re-checked by the store insert, so a race between two initiations still
// produces a single pending Payment.
func (s *Service) Initiate(ctx context.Context, actor tasks.Actor, taskID int64) (Checkout, error) {
	t, err := s.authorizer.PayableTask(ctx, actor, taskID)
	if err != nil {
		s.metrics.PaymentsInitiated.WithLabelValues("refused").Inc()
		return Checkout{}, err
	}

	pending, err := s.store.HasPendingPayment(ctx, taskID)
	if err != nil {
		return Checkout{}, err
	}
	if pending {
		s.metrics.PaymentsInitiated.WithLabelValues("refused").Inc()
		return Checkout{}, ErrPaymentPending
	}

	intent, err := s.gateway.CreateIntent(ctx, minorUnits(t.Price), s.currency,
		fmt.Sprintf("Payment for task %q", t.Title))
	if err != nil {
		s.metrics.PaymentsInitiated.WithLabelValues("gateway_error").Inc()
		if !errors.Is(err, ErrGatewayUnreachable) {
			err = fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
		}
		return Checkout{}, err
	}

	created, err := s.store.CreatePayment(ctx, tasks.Payment{
		ID:       uuid.NewString(),
		TaskID:   t.ID,
		IntentID: intent.ID,
		Amount:   t.Price,
	})
	if err != nil {
		if errors.Is(err, store.ErrPendingPaymentExists) {
			s.metrics.PaymentsInitiated.WithLabelValues("refused").Inc()
			return Checkout{}, ErrPaymentPending
		}
		return Checkout{}, err
	}

	s.metrics.PaymentsInitiated.WithLabelValues("created").Inc()
	slog.Info("payment initiated",
		"payment_id", created.ID,
		"task_id", t.ID,
		"intent_id", intent.ID,
		"amount", t.Price.String())

	return Checkout{PaymentID: created.ID, ClientSecret: intent.ClientSecret}, nil
}

// errAlreadySettled signals a duplicate delivery out of the settlement
// closure. Never returned to callers.
var errAlreadySettled = errors.New("payment already settled")

// HandleWebhook verifies and applies one gateway event. Unmatched intents
// and duplicate deliveries are acknowledged as no-ops so the gateway does
// not retry-storm decisions that are intentionally final.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.gateway.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		slog.Warn("rejected webhook delivery", "error", err)
		if !errors.Is(err, ErrVerificationFailed) {
			err = fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
		return err
	}

	if event.Kind != EventPaymentSucceeded {
		s.metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		slog.Debug("ignoring webhook event", "kind", event.Kind)
		return nil
	}

	p, t, err := s.store.SettlePayment(ctx, event.IntentID, func(p *tasks.Payment, t *tasks.Task) error {
		if p.Status == tasks.PaymentPaid {
			return errAlreadySettled
		}
		p.Status = tasks.PaymentPaid
		t.Status = tasks.StatusPaid
		return nil
	})

	switch {
	case errors.Is(err, store.ErrNotFound):
		// Duplicate after cleanup, or an intent this system never
		// originated. Acknowledge and move on.
		s.metrics.WebhookEvents.WithLabelValues("unmatched").Inc()
		slog.Debug("webhook for unknown intent", "intent_id", event.IntentID)
		return nil
	case errors.Is(err, errAlreadySettled):
		s.metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		return nil
	case err != nil:
		return err
	}

	s.metrics.WebhookEvents.WithLabelValues("applied").Inc()
	slog.Info("payment settled", "payment_id", p.ID, "task_id", t.ID)

	if t.ClaimedBy != nil {
		taskID := t.ID
		s.notifier.Send(ctx, tasks.Notification{
			RecipientID: *t.ClaimedBy,
			TaskID:      &taskID,
			Type:        tasks.NotifyTaskPaid,
			Message:     fmt.Sprintf("You have been paid %s for %q", p.Amount.StringFixed(2), t.Title),
		})
	}
	s.cache.InvalidateTask(t)

	return nil
}
