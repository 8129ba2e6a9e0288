package tasks

import "time"

// NotificationType tags the event a notification describes.
type NotificationType string

const (
	NotifyTaskClaimed   NotificationType = "task_claimed"
	NotifyTaskCompleted NotificationType = "task_completed"
	NotifyTaskApproved  NotificationType = "task_approved"
	NotifyTaskPaid      NotificationType = "task_paid"
	NotifyTaskComment   NotificationType = "task_comment"
)

// Notification is a user-visible event record. Immutable except for the
// read flag, which only the recipient may set.
type Notification struct {
	ID          int64
	RecipientID int64
	ActorID     *int64
	TaskID      *int64
	Type        NotificationType
	Message     string
	Read        bool
	CreatedAt   time.Time
}

// Comment is a discussion message attached to a task. Visibility follows
// the task's own visibility rule.
type Comment struct {
	ID        int64
	TaskID    int64
	UserID    int64
	Message   string
	CreatedAt time.Time
}
