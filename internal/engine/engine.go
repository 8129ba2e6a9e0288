// Package engine validates and applies task lifecycle transitions. Every
// transition runs its checks and its write inside the store's exclusive row
// lock, so two racing writers on the same task resolve with exactly one
// winner.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/metrics"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

// Notifier receives fire-and-forget notifications; implementations must
// never fail the calling transition.
type Notifier interface {
	Send(ctx context.Context, n tasks.Notification)
}

// CacheInvalidator evicts derived aggregates for the users a task touches.
type CacheInvalidator interface {
	InvalidateTask(t tasks.Task)
}

type Engine struct {
	tasks    store.TaskStore
	comments store.CommentStore
	notifier Notifier
	cache    CacheInvalidator
	metrics  *metrics.Metrics
}

func New(taskStore store.TaskStore, commentStore store.CommentStore, notifier Notifier, cache CacheInvalidator, m *metrics.Metrics) *Engine {
	return &Engine{
		tasks:    taskStore,
		comments: commentStore,
		notifier: notifier,
		cache:    cache,
		metrics:  m,
	}
}

// CreateInput carries the caller-settable task fields.
type CreateInput struct {
	Title           string
	Description     string
	Price           decimal.Decimal
	DurationMinutes int
}

// Create posts a new open task. Business role only.
func (e *Engine) Create(ctx context.Context, actor tasks.Actor, in CreateInput) (tasks.Task, error) {
	if actor.Role != tasks.RoleBusiness {
		return tasks.Task{}, fmt.Errorf("%w: only business users can post tasks", ErrForbidden)
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return tasks.Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !in.Price.IsPositive() {
		return tasks.Task{}, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = 15
	}

	return e.tasks.CreateTask(ctx, tasks.Task{
		Title:           in.Title,
		Description:     strings.TrimSpace(in.Description),
		Price:           in.Price,
		CreatedBy:       actor.ID,
		DurationMinutes: in.DurationMinutes,
	})
}

// Get returns the task if it is visible to the actor.
func (e *Engine) Get(ctx context.Context, actor tasks.Actor, id int64) (tasks.Task, error) {
	t, err := e.tasks.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return tasks.Task{}, ErrNotFound
	}
	if err != nil {
		return tasks.Task{}, err
	}
	if !t.VisibleTo(actor.ID) {
		return tasks.Task{}, ErrNotFound
	}
	return t, nil
}

// List returns the tasks visible to the actor, most recently updated first.
func (e *Engine) List(ctx context.Context, actor tasks.Actor) ([]tasks.Task, error) {
	return e.tasks.ListTasks(ctx, actor.ID)
}

// Delete removes a task. Permitted only to the creator and only while the
// task is still open.
func (e *Engine) Delete(ctx context.Context, actor tasks.Actor, id int64) error {
	err := e.tasks.DeleteTask(ctx, id, func(t tasks.Task) error {
		if !t.VisibleTo(actor.ID) {
			return ErrNotFound
		}
		if t.Status != tasks.StatusOpen {
			return fmt.Errorf("%w: only open tasks can be deleted", ErrConflict)
		}
		if t.CreatedBy != actor.ID {
			return fmt.Errorf("%w: only the task creator can delete it", ErrForbidden)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Claim assigns an open task to a worker. Exactly one of any number of
// concurrent claim attempts wins; the rest fail with ErrConflict.
func (e *Engine) Claim(ctx context.Context, actor tasks.Actor, id int64) (tasks.Task, error) {
	return e.transition(ctx, actor, id, OpClaim, func(t *tasks.Task) error {
		claimant := actor.ID
		t.ClaimedBy = &claimant
		return nil
	})
}

// Complete marks a claimed task as done, attaching the proof reference.
func (e *Engine) Complete(ctx context.Context, actor tasks.Actor, id int64, proofRef string) (tasks.Task, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return tasks.Task{}, fmt.Errorf("%w: proof of completion is required", ErrValidation)
	}

	return e.transition(ctx, actor, id, OpComplete, func(t *tasks.Task) error {
		t.ProofRef = proofRef
		return nil
	})
}

// Approve accepts a completed task's proof.
func (e *Engine) Approve(ctx context.Context, actor tasks.Actor, id int64) (tasks.Task, error) {
	return e.transition(ctx, actor, id, OpApprove, nil)
}

// PayableTask runs the pay rule's preconditions without mutating anything.
// Payment initiation calls the gateway before taking any row lock, so the
// checks here are advisory; the pending-payment guard in the store is what
// holds under races.
func (e *Engine) PayableTask(ctx context.Context, actor tasks.Actor, id int64) (tasks.Task, error) {
	t, err := e.Get(ctx, actor, id)
	if err != nil {
		return tasks.Task{}, err
	}
	if err := checkRule(transitions[OpPay], t, actor, OpPay); err != nil {
		return tasks.Task{}, err
	}
	return t, nil
}

// AddComment posts a discussion message on a task visible to the actor and
// notifies the counterpart participant.
func (e *Engine) AddComment(ctx context.Context, actor tasks.Actor, taskID int64, message string) (tasks.Comment, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return tasks.Comment{}, fmt.Errorf("%w: message is required", ErrValidation)
	}

	t, err := e.Get(ctx, actor, taskID)
	if err != nil {
		return tasks.Comment{}, err
	}

	c, err := e.comments.CreateComment(ctx, tasks.Comment{
		TaskID:  taskID,
		UserID:  actor.ID,
		Message: message,
	})
	if err != nil {
		return tasks.Comment{}, err
	}

	if recipient, ok := commentRecipient(t, actor.ID); ok {
		actorID := actor.ID
		e.notifier.Send(ctx, tasks.Notification{
			RecipientID: recipient,
			ActorID:     &actorID,
			TaskID:      &t.ID,
			Type:        tasks.NotifyTaskComment,
			Message:     fmt.Sprintf("New comment on %q", t.Title),
		})
	}
	return c, nil
}

// ListComments returns a task's discussion, gated by the same visibility
// rule as the task itself.
func (e *Engine) ListComments(ctx context.Context, actor tasks.Actor, taskID int64) ([]tasks.Comment, error) {
	if _, err := e.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return e.comments.ListComments(ctx, taskID)
}

// transition applies one row of the transition table under the store's
// exclusive row lock. Check order: visibility, source state, role,
// ownership. On success it notifies the counterpart actor and invalidates
// the affected dashboard caches.
func (e *Engine) transition(ctx context.Context, actor tasks.Actor, id int64, op Operation, apply func(*tasks.Task) error) (tasks.Task, error) {
	r := transitions[op]

	updated, err := e.tasks.UpdateTask(ctx, id, func(t *tasks.Task) error {
		if err := checkRule(r, *t, actor, op); err != nil {
			return err
		}
		if apply != nil {
			if err := apply(t); err != nil {
				return err
			}
		}
		t.Status = r.next
		return nil
	})

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrNotFound
		}
		e.metrics.Transitions.WithLabelValues(string(op), outcome(err)).Inc()
		return tasks.Task{}, err
	}

	e.metrics.Transitions.WithLabelValues(string(op), "success").Inc()
	e.notifyTransition(ctx, updated, actor, op)
	e.cache.InvalidateTask(updated)

	return updated, nil
}

func checkRule(r rule, t tasks.Task, actor tasks.Actor, op Operation) error {
	if !t.VisibleTo(actor.ID) {
		// Open tasks are visible to everyone, so a claimer who cannot see
		// the task can only mean it already left the open state. That is a
		// state conflict, not a missing task.
		if op == OpClaim {
			return fmt.Errorf("%w: %s requires an %s task, got %s", ErrConflict, op, r.from, t.Status)
		}
		return ErrNotFound
	}
	if t.Status != r.from {
		return fmt.Errorf("%w: %s requires an %s task, got %s", ErrConflict, op, r.from, t.Status)
	}
	if actor.Role != r.role {
		return fmt.Errorf("%w: %s requires the %s role", ErrForbidden, op, r.role)
	}
	if !r.allowed(t, actor.ID) {
		return fmt.Errorf("%w: %s", ErrForbidden, r.denyMsg)
	}
	return nil
}

// notifyTransition sends one notification to the counterpart actor:
// worker-driven transitions notify the creator, business-driven ones notify
// the claimant.
func (e *Engine) notifyTransition(ctx context.Context, t tasks.Task, actor tasks.Actor, op Operation) {
	var recipient int64
	var typ tasks.NotificationType
	var message string

	switch op {
	case OpClaim:
		recipient = t.CreatedBy
		typ = tasks.NotifyTaskClaimed
		message = fmt.Sprintf("Your task %q has been claimed", t.Title)
	case OpComplete:
		recipient = t.CreatedBy
		typ = tasks.NotifyTaskCompleted
		message = fmt.Sprintf("Proof of completion submitted for %q", t.Title)
	case OpApprove:
		if t.ClaimedBy == nil {
			return
		}
		recipient = *t.ClaimedBy
		typ = tasks.NotifyTaskApproved
		message = fmt.Sprintf("Your work on %q was approved", t.Title)
	default:
		return
	}

	actorID := actor.ID
	e.notifier.Send(ctx, tasks.Notification{
		RecipientID: recipient,
		ActorID:     &actorID,
		TaskID:      &t.ID,
		Type:        typ,
		Message:     message,
	})
}

func commentRecipient(t tasks.Task, actorID int64) (int64, bool) {
	if t.CreatedBy != actorID {
		return t.CreatedBy, true
	}
	if t.ClaimedBy != nil && *t.ClaimedBy != actorID {
		return *t.ClaimedBy, true
	}
	return 0, false
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
