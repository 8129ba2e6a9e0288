package httpapi

import "net/http"

// NewRouter wires the HTTP surface. The webhook endpoint is the only
// unauthenticated mutation: it carries its own signature-based trust.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("GET /tasks", h.ListTasks)
	mux.HandleFunc("POST /tasks", h.CreateTask)
	mux.HandleFunc("GET /tasks/{id}", h.GetTask)
	mux.HandleFunc("DELETE /tasks/{id}", h.DeleteTask)

	mux.HandleFunc("POST /tasks/{id}/claim", h.ClaimTask)
	mux.HandleFunc("PATCH /tasks/{id}/complete", h.CompleteTask)
	mux.HandleFunc("PATCH /tasks/{id}/approve", h.ApproveTask)
	mux.HandleFunc("PATCH /tasks/{id}/pay", h.PayTask)

	mux.HandleFunc("POST /payments/webhook", h.PaymentWebhook)

	mux.HandleFunc("GET /tasks/{id}/comments", h.ListComments)
	mux.HandleFunc("POST /tasks/{id}/comments", h.CreateComment)

	mux.HandleFunc("GET /notifications", h.ListNotifications)
	mux.HandleFunc("PATCH /notifications/{id}/read", h.MarkNotificationRead)

	mux.HandleFunc("GET /dashboard/business", h.BusinessDashboard)
	mux.HandleFunc("GET /dashboard/worker", h.WorkerDashboard)

	return RequestLog(mux)
}
