// Package postgres implements store.Store on PostgreSQL. Transition writes
// run inside a transaction with SELECT ... FOR UPDATE so concurrent writers
// on the same task serialize on the row lock.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

const taskColumns = `id, title, description, price, created_by, claimed_by, status, proof_ref, duration_minutes, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (tasks.Task, error) {
	var t tasks.Task
	var claimedBy sql.NullInt64

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Price, &t.CreatedBy,
		&claimedBy, &t.Status, &t.ProofRef, &t.DurationMinutes,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return tasks.Task{}, err
	}

	if claimedBy.Valid {
		t.ClaimedBy = &claimedBy.Int64
	}
	return t, nil
}

func claimedByValue(t tasks.Task) sql.NullInt64 {
	if t.ClaimedBy == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *t.ClaimedBy, Valid: true}
}

func (s *Store) CreateTask(ctx context.Context, t tasks.Task) (tasks.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, price, created_by, status, duration_minutes)
		VALUES ($1, $2, $3, $4, 'open', $5)
		RETURNING `+taskColumns+`
	`, t.Title, t.Description, t.Price, t.CreatedBy, t.DurationMinutes)

	created, err := scanTask(row)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (tasks.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Task{}, store.ErrNotFound
	}
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, viewerID int64) ([]tasks.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = 'open' OR created_by = $1 OR claimed_by = $1
		ORDER BY updated_at DESC
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var list []tasks.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, id int64, mutate func(*tasks.Task) error) (tasks.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
	`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Task{}, store.ErrNotFound
	}
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to lock task: %w", err)
	}

	if err := mutate(&t); err != nil {
		return tasks.Task{}, err
	}

	row = tx.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = $2,
			claimed_by = $3,
			proof_ref = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+taskColumns+`
	`, t.ID, t.Status, claimedByValue(t), t.ProofRef)

	updated, err := scanTask(row)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return tasks.Task{}, fmt.Errorf("failed to commit task update: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64, check func(tasks.Task) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
	`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock task: %w", err)
	}

	if err := check(t); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return tx.Commit()
}

func (s *Store) CreatePayment(ctx context.Context, p tasks.Payment) (tasks.Payment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO payments (id, task_id, intent_id, amount, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING created_at
	`, p.ID, p.TaskID, p.IntentID, p.Amount).Scan(&p.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case "payments_intent_id_key":
				return tasks.Payment{}, store.ErrDuplicateIntent
			case "payments_one_pending_per_task":
				return tasks.Payment{}, store.ErrPendingPaymentExists
			}
		}
		return tasks.Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}

	p.Status = tasks.PaymentPending
	return p, nil
}

func (s *Store) GetPaymentByIntent(ctx context.Context, intentID string) (tasks.Payment, error) {
	var p tasks.Payment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, intent_id, amount, status, created_at
		FROM payments
		WHERE intent_id = $1
	`, intentID).Scan(&p.ID, &p.TaskID, &p.IntentID, &p.Amount, &p.Status, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Payment{}, store.ErrNotFound
	}
	if err != nil {
		return tasks.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (s *Store) HasPendingPayment(ctx context.Context, taskID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payments WHERE task_id = $1 AND status = 'pending'
		)
	`, taskID).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check pending payment: %w", err)
	}
	return exists, nil
}

func (s *Store) SettlePayment(ctx context.Context, intentID string, mutate func(*tasks.Payment, *tasks.Task) error) (tasks.Payment, tasks.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tasks.Payment{}, tasks.Task{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var p tasks.Payment
	err = tx.QueryRowContext(ctx, `
		SELECT id, task_id, intent_id, amount, status, created_at
		FROM payments
		WHERE intent_id = $1
		FOR UPDATE
	`, intentID).Scan(&p.ID, &p.TaskID, &p.IntentID, &p.Amount, &p.Status, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Payment{}, tasks.Task{}, store.ErrNotFound
	}
	if err != nil {
		return tasks.Payment{}, tasks.Task{}, fmt.Errorf("failed to lock payment: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
	`, p.TaskID)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Payment{}, tasks.Task{}, store.ErrNotFound
	}
	if err != nil {
		return tasks.Payment{}, tasks.Task{}, fmt.Errorf("failed to lock task: %w", err)
	}

	if err := mutate(&p, &t); err != nil {
		return tasks.Payment{}, tasks.Task{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = $2 WHERE id = $1
	`, p.ID, p.Status); err != nil {
		return tasks.Payment{}, tasks.Task{}, fmt.Errorf("failed to update payment: %w", err)
	}

	row = tx.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = $2,
			claimed_by = $3,
			proof_ref = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+taskColumns+`
	`, t.ID, t.Status, claimedByValue(t), t.ProofRef)

	updated, err := scanTask(row)
	if err != nil {
		return tasks.Payment{}, tasks.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return tasks.Payment{}, tasks.Task{}, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return p, updated, nil
}

func (s *Store) CreateNotification(ctx context.Context, n tasks.Notification) (tasks.Notification, error) {
	var actorID, taskID sql.NullInt64
	if n.ActorID != nil {
		actorID = sql.NullInt64{Int64: *n.ActorID, Valid: true}
	}
	if n.TaskID != nil {
		taskID = sql.NullInt64{Int64: *n.TaskID, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (recipient_id, actor_id, task_id, type, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at
	`, n.RecipientID, actorID, taskID, n.Type, n.Message).Scan(&n.ID, &n.Read, &n.CreatedAt)

	if err != nil {
		return tasks.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID int64) ([]tasks.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, actor_id, task_id, type, message, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY id DESC
	`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []tasks.Notification
	for rows.Next() {
		var n tasks.Notification
		var actorID, taskID sql.NullInt64

		if err := rows.Scan(&n.ID, &n.RecipientID, &actorID, &taskID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if actorID.Valid {
			n.ActorID = &actorID.Int64
		}
		if taskID.Valid {
			n.TaskID = &taskID.Int64
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID int64) (tasks.Notification, error) {
	var n tasks.Notification
	var actorID, taskID sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND recipient_id = $2
		RETURNING id, recipient_id, actor_id, task_id, type, message, is_read, created_at
	`, id, recipientID).Scan(&n.ID, &n.RecipientID, &actorID, &taskID, &n.Type, &n.Message, &n.Read, &n.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Notification{}, store.ErrNotFound
	}
	if err != nil {
		return tasks.Notification{}, fmt.Errorf("failed to mark notification read: %w", err)
	}

	if actorID.Valid {
		n.ActorID = &actorID.Int64
	}
	if taskID.Valid {
		n.TaskID = &taskID.Int64
	}
	return n, nil
}

func (s *Store) CreateComment(ctx context.Context, c tasks.Comment) (tasks.Comment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO task_comments (task_id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.TaskID, c.UserID, c.Message).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return tasks.Comment{}, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, taskID int64) ([]tasks.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, user_id, message, created_at
		FROM task_comments
		WHERE task_id = $1
		ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var list []tasks.Comment
	for rows.Next() {
		var c tasks.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Message, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (s *Store) GetProfile(ctx context.Context, userID int64) (tasks.UserProfile, error) {
	var p tasks.UserProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, role, phone, address
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Username, &p.Role, &p.Phone, &p.Address)

	if errors.Is(err, sql.ErrNoRows) {
		return tasks.UserProfile{}, store.ErrNotFound
	}
	if err != nil {
		return tasks.UserProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p tasks.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, username, role, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
			role = EXCLUDED.role,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address
	`, p.UserID, p.Username, p.Role, p.Phone, p.Address)

	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (s *Store) BusinessStats(ctx context.Context, userID int64) (tasks.BusinessStats, error) {
	stats := tasks.BusinessStats{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE created_by = $1
		GROUP BY status
	`, userID)
	if err != nil {
		return stats, fmt.Errorf("failed to query business stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status tasks.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan business stats: %w", err)
		}

		stats.Posted += count
		switch status {
		case tasks.StatusOpen:
			stats.Open = count
		case tasks.StatusClaimed:
			stats.Claimed = count
		case tasks.StatusCompleted, tasks.StatusApproved:
			stats.Pending += count
		case tasks.StatusPaid:
			stats.Paid = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(price), 0)
		FROM tasks
		WHERE created_by = $1 AND status = 'paid'
	`, userID).Scan(&stats.TotalPaidAmount)
	if err != nil {
		return stats, fmt.Errorf("failed to query paid amount: %w", err)
	}

	return stats, nil
}

func (s *Store) WorkerStats(ctx context.Context, userID int64) (tasks.WorkerStats, error) {
	stats := tasks.WorkerStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('completed', 'approved', 'paid')),
			COALESCE(SUM(price) FILTER (WHERE status = 'paid'), 0)
		FROM tasks
		WHERE claimed_by = $1
	`, userID).Scan(&stats.Claimed, &stats.Completed, &stats.TotalEarnings)

	if err != nil {
		return stats, fmt.Errorf("failed to query worker stats: %w", err)
	}
	return stats, nil
}
