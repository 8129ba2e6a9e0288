// Package memory provides an in-memory Store used by unit tests and local
// development. A single mutex guards all state, which gives the same
// atomic read-check-write guarantee the postgres implementation gets from
// row locks.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

type Store struct {
	mu sync.Mutex

	nextTaskID         int64
	nextNotificationID int64
	nextCommentID      int64

	tasks         map[int64]tasks.Task
	payments      map[string]tasks.Payment // keyed by payment id
	byIntent      map[string]string        // intent id -> payment id
	notifications map[int64]tasks.Notification
	comments      map[int64]tasks.Comment
	profiles      map[int64]tasks.UserProfile
}

func New() *Store {
	return &Store{
		tasks:         make(map[int64]tasks.Task),
		payments:      make(map[string]tasks.Payment),
		byIntent:      make(map[string]string),
		notifications: make(map[int64]tasks.Notification),
		comments:      make(map[int64]tasks.Comment),
		profiles:      make(map[int64]tasks.UserProfile),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateTask(ctx context.Context, t tasks.Task) (tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTaskID++
	t.ID = s.nextTaskID
	t.Status = tasks.StatusOpen
	t.ClaimedBy = nil
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return tasks.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, viewerID int64) ([]tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]tasks.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.VisibleTo(viewerID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) UpdateTask(ctx context.Context, id int64, mutate func(*tasks.Task) error) (tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return tasks.Task{}, store.ErrNotFound
	}

	if err := mutate(&t); err != nil {
		return tasks.Task{}, err
	}

	t.UpdatedAt = time.Now()
	s.tasks[id] = t
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64, check func(tasks.Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := check(t); err != nil {
		return err
	}

	delete(s.tasks, id)
	return nil
}

func (s *Store) CreatePayment(ctx context.Context, p tasks.Payment) (tasks.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[p.TaskID]; !ok {
		return tasks.Payment{}, store.ErrNotFound
	}
	if _, ok := s.byIntent[p.IntentID]; ok {
		return tasks.Payment{}, store.ErrDuplicateIntent
	}
	for _, existing := range s.payments {
		if existing.TaskID == p.TaskID && existing.Status == tasks.PaymentPending {
			return tasks.Payment{}, store.ErrPendingPaymentExists
		}
	}

	p.Status = tasks.PaymentPending
	p.CreatedAt = time.Now()
	s.payments[p.ID] = p
	s.byIntent[p.IntentID] = p.ID
	return p, nil
}

func (s *Store) GetPaymentByIntent(ctx context.Context, intentID string) (tasks.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byIntent[intentID]
	if !ok {
		return tasks.Payment{}, store.ErrNotFound
	}
	return s.payments[id], nil
}

func (s *Store) HasPendingPayment(ctx context.Context, taskID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.TaskID == taskID && p.Status == tasks.PaymentPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SettlePayment(ctx context.Context, intentID string, mutate func(*tasks.Payment, *tasks.Task) error) (tasks.Payment, tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byIntent[intentID]
	if !ok {
		return tasks.Payment{}, tasks.Task{}, store.ErrNotFound
	}
	p := s.payments[id]

	t, ok := s.tasks[p.TaskID]
	if !ok {
		return tasks.Payment{}, tasks.Task{}, store.ErrNotFound
	}

	if err := mutate(&p, &t); err != nil {
		return tasks.Payment{}, tasks.Task{}, err
	}

	t.UpdatedAt = time.Now()
	s.payments[id] = p
	s.tasks[t.ID] = t
	return p, t, nil
}

func (s *Store) CreateNotification(ctx context.Context, n tasks.Notification) (tasks.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNotificationID++
	n.ID = s.nextNotificationID
	n.Read = false
	n.CreatedAt = time.Now()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID int64) ([]tasks.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]tasks.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID int64) (tasks.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return tasks.Notification{}, store.ErrNotFound
	}

	n.Read = true
	s.notifications[id] = n
	return n, nil
}

func (s *Store) CreateComment(ctx context.Context, c tasks.Comment) (tasks.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[c.TaskID]; !ok {
		return tasks.Comment{}, store.ErrNotFound
	}

	s.nextCommentID++
	c.ID = s.nextCommentID
	c.CreatedAt = time.Now()
	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, taskID int64) ([]tasks.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]tasks.Comment, 0)
	for _, c := range s.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, userID int64) (tasks.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return tasks.UserProfile{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p tasks.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) BusinessStats(ctx context.Context, userID int64) (tasks.BusinessStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := tasks.BusinessStats{TotalPaidAmount: decimal.Zero}
	for _, t := range s.tasks {
		if t.CreatedBy != userID {
			continue
		}
		stats.Posted++
		switch t.Status {
		case tasks.StatusOpen:
			stats.Open++
		case tasks.StatusClaimed:
			stats.Claimed++
		case tasks.StatusCompleted, tasks.StatusApproved:
			stats.Pending++
		case tasks.StatusPaid:
			stats.Paid++
			stats.TotalPaidAmount = stats.TotalPaidAmount.Add(t.Price)
		}
	}
	return stats, nil
}

func (s *Store) WorkerStats(ctx context.Context, userID int64) (tasks.WorkerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := tasks.WorkerStats{TotalEarnings: decimal.Zero}
	for _, t := range s.tasks {
		if t.ClaimedBy == nil || *t.ClaimedBy != userID {
			continue
		}
		stats.Claimed++
		switch t.Status {
		case tasks.StatusCompleted, tasks.StatusApproved:
			stats.Completed++
		case tasks.StatusPaid:
			stats.Completed++
			stats.TotalEarnings = stats.TotalEarnings.Add(t.Price)
		}
	}
	return stats, nil
}
