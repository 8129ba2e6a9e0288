// Package store defines the persistence contracts shared by the postgres
// and in-memory implementations. Write operations that participate in a
// lifecycle transition take a mutate closure which the implementation runs
// while holding an exclusive lock on the affected rows, so the
// read-check-write sequence is atomic with respect to other writers.
package store

import (
	"context"
	"errors"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPendingPaymentExists is returned when a task already has a
	// payment in the pending state.
	ErrPendingPaymentExists = errors.New("a pending payment already exists for this task")

	// ErrDuplicateIntent is returned when a payment with the same gateway
	// intent id already exists.
	ErrDuplicateIntent = errors.New("payment intent already recorded")
)

// TaskStore persists task rows; the status column is the source of truth
// for lifecycle state.
type TaskStore interface {
	CreateTask(ctx context.Context, t tasks.Task) (tasks.Task, error)
	GetTask(ctx context.Context, id int64) (tasks.Task, error)

	// ListTasks returns the tasks visible to viewerID (open, created by,
	// or claimed by), most recently updated first.
	ListTasks(ctx context.Context, viewerID int64) ([]tasks.Task, error)

	// UpdateTask loads the task under an exclusive row lock, applies
	// mutate, and persists the result with a refreshed updated_at. If
	// mutate returns an error the task is left untouched and the error is
	// returned as-is.
	UpdateTask(ctx context.Context, id int64, mutate func(*tasks.Task) error) (tasks.Task, error)

	// DeleteTask removes the task if check accepts its current state,
	// atomically with respect to concurrent transitions.
	DeleteTask(ctx context.Context, id int64, check func(tasks.Task) error) error
}

// PaymentStore persists payment rows. Payments are append-only apart from
// settlement; rows are never deleted.
type PaymentStore interface {
	// CreatePayment inserts the payment. It fails with
	// ErrPendingPaymentExists when the task already has a pending payment
	// and with ErrDuplicateIntent on an intent id collision.
	CreatePayment(ctx context.Context, p tasks.Payment) (tasks.Payment, error)

	GetPaymentByIntent(ctx context.Context, intentID string) (tasks.Payment, error)

	// HasPendingPayment reports whether the task has a payment still in
	// the pending state.
	HasPendingPayment(ctx context.Context, taskID int64) (bool, error)

	// SettlePayment locks the payment identified by intentID together
	// with its task, applies mutate to both, and persists them in one
	// transaction. ErrNotFound when no payment matches the intent.
	SettlePayment(ctx context.Context, intentID string, mutate func(*tasks.Payment, *tasks.Task) error) (tasks.Payment, tasks.Task, error)
}

// NotificationStore persists notification rows.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n tasks.Notification) (tasks.Notification, error)
	ListNotifications(ctx context.Context, recipientID int64) ([]tasks.Notification, error)

	// MarkNotificationRead sets the read flag; only the recipient may do
	// so, anything else is ErrNotFound.
	MarkNotificationRead(ctx context.Context, id, recipientID int64) (tasks.Notification, error)
}

// CommentStore persists task discussion messages.
type CommentStore interface {
	CreateComment(ctx context.Context, c tasks.Comment) (tasks.Comment, error)
	ListComments(ctx context.Context, taskID int64) ([]tasks.Comment, error)
}

// ProfileStore resolves user roles and contact data.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (tasks.UserProfile, error)
	UpsertProfile(ctx context.Context, p tasks.UserProfile) error
}

// StatsStore computes dashboard aggregates straight from task rows. The
// dashboard cache sits in front of these queries.
type StatsStore interface {
	BusinessStats(ctx context.Context, userID int64) (tasks.BusinessStats, error)
	WorkerStats(ctx context.Context, userID int64) (tasks.WorkerStats, error)
}

// Store is the full persistence surface the service is wired against.
type Store interface {
	TaskStore
	PaymentStore
	NotificationStore
	CommentStore
	ProfileStore
	StatsStore
}
