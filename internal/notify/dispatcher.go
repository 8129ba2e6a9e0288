// Package notify appends notification rows as a side effect of task
// transitions. A failed write is logged and swallowed: the transition that
// triggered it has already been persisted and must not be rolled back.
package notify

import (
	"context"
	"log/slog"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/metrics"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

type Dispatcher struct {
	store   store.NotificationStore
	metrics *metrics.Metrics
}

func New(st store.NotificationStore, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{store: st, metrics: m}
}

// Send writes the notification, swallowing any failure.
func (d *Dispatcher) Send(ctx context.Context, n tasks.Notification) {
	if _, err := d.store.CreateNotification(ctx, n); err != nil {
		slog.Error("failed to write notification",
			"recipient_id", n.RecipientID,
			"type", n.Type,
			"error", err)
		d.metrics.NotifyFailures.Inc()
	}
}
