package httpapi

import (
	"time"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

type CreateTaskRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CompleteTaskRequest struct {
	ProofRef string `json:"proof_ref"`
}

type CommentRequest struct {
	Message string `json:"message"`
}

type TaskResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Price           string    `json:"price"`
	CreatedBy       int64     `json:"created_by"`
	ClaimedBy       *int64    `json:"claimed_by,omitempty"`
	Status          string    `json:"status"`
	ProofRef        string    `json:"proof_ref,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toTaskResponse(t tasks.Task) TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Price:           t.Price.StringFixed(2),
		CreatedBy:       t.CreatedBy,
		ClaimedBy:       t.ClaimedBy,
		Status:          string(t.Status),
		ProofRef:        t.ProofRef,
		DurationMinutes: t.DurationMinutes,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

type CheckoutResponse struct {
	PaymentID    string `json:"payment_id"`
	ClientSecret string `json:"client_secret"`
}

type CommentResponse struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentResponse(c tasks.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		Message:   c.Message,
		CreatedAt: c.CreatedAt,
	}
}

type NotificationResponse struct {
	ID        int64     `json:"id"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	TaskID    *int64    `json:"task_id,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponse(n tasks.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		ActorID:   n.ActorID,
		TaskID:    n.TaskID,
		Type:      string(n.Type),
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
