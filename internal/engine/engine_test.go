package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/metrics"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store/memory"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

var (
	business = tasks.Actor{ID: 1, Role: tasks.RoleBusiness}
	workerA  = tasks.Actor{ID: 2, Role: tasks.RoleWorker}
	workerB  = tasks.Actor{ID: 3, Role: tasks.RoleWorker}
	outsider = tasks.Actor{ID: 4, Role: tasks.RoleWorker}
)

type notifierRecorder struct {
	mu   sync.Mutex
	sent []tasks.Notification
}

func (r *notifierRecorder) Send(_ context.Context, n tasks.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *notifierRecorder) all() []tasks.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tasks.Notification(nil), r.sent...)
}

type cacheRecorder struct {
	mu          sync.Mutex
	invalidated []tasks.Task
}

func (r *cacheRecorder) InvalidateTask(t tasks.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, t)
}

func (r *cacheRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invalidated)
}

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *notifierRecorder, *cacheRecorder) {
	t.Helper()
	st := memory.New()
	notifier := &notifierRecorder{}
	cache := &cacheRecorder{}
	eng := New(st, st, notifier, cache, metrics.New(prometheus.NewRegistry()))
	return eng, st, notifier, cache
}

func postTask(t *testing.T, eng *Engine) tasks.Task {
	t.Helper()
	task, err := eng.Create(context.Background(), business, CreateInput{
		Title: "Deliver groceries",
		Price: decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return task
}

func TestCreateValidation(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Create(ctx, workerA, CreateInput{Title: "x", Price: decimal.NewFromInt(10)}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("worker create: got %v, want ErrForbidden", err)
	}
	if _, err := eng.Create(ctx, business, CreateInput{Title: "  ", Price: decimal.NewFromInt(10)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty title: got %v, want ErrValidation", err)
	}
	if _, err := eng.Create(ctx, business, CreateInput{Title: "x", Price: decimal.NewFromInt(-5)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative price: got %v, want ErrValidation", err)
	}

	task, err := eng.Create(ctx, business, CreateInput{Title: "x", Price: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.Status != tasks.StatusOpen {
		t.Fatalf("status = %s, want open", task.Status)
	}
	if task.DurationMinutes != 15 {
		t.Fatalf("duration = %d, want default 15", task.DurationMinutes)
	}
}

func TestFullLifecycle(t *testing.T) {
	eng, _, notifier, cache := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	claimed, err := eng.Claim(ctx, workerA, task.ID)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed.Status != tasks.StatusClaimed || claimed.ClaimedBy == nil || *claimed.ClaimedBy != workerA.ID {
		t.Fatalf("after claim: status=%s claimed_by=%v", claimed.Status, claimed.ClaimedBy)
	}

	completed, err := eng.Complete(ctx, workerA, task.ID, "s3://proofs/receipt.jpg")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completed.Status != tasks.StatusCompleted || completed.ProofRef != "s3://proofs/receipt.jpg" {
		t.Fatalf("after complete: status=%s proof=%q", completed.Status, completed.ProofRef)
	}

	approved, err := eng.Approve(ctx, business, task.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != tasks.StatusApproved {
		t.Fatalf("after approve: status=%s, want approved", approved.Status)
	}

	sent := notifier.all()
	if len(sent) != 3 {
		t.Fatalf("notifications sent = %d, want 3", len(sent))
	}
	wantRecipients := []int64{business.ID, business.ID, workerA.ID}
	wantTypes := []tasks.NotificationType{tasks.NotifyTaskClaimed, tasks.NotifyTaskCompleted, tasks.NotifyTaskApproved}
	for i, n := range sent {
		if n.RecipientID != wantRecipients[i] || n.Type != wantTypes[i] {
			t.Fatalf("notification %d: recipient=%d type=%s, want recipient=%d type=%s",
				i, n.RecipientID, n.Type, wantRecipients[i], wantTypes[i])
		}
	}

	if cache.count() != 3 {
		t.Fatalf("cache invalidations = %d, want 3", cache.count())
	}
}

func TestClaimRace(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, w := range []tasks.Actor{workerA, workerB} {
		wg.Add(1)
		go func(actor tasks.Actor) {
			defer wg.Done()
			_, err := eng.Claim(ctx, actor, task.ID)
			errs <- err
		}(w)
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins=%d conflicts=%d, want exactly one of each", wins, conflicts)
	}
}

func TestClaimRejections(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	businessAsClaimer := tasks.Actor{ID: business.ID, Role: tasks.RoleWorker}
	if _, err := eng.Claim(ctx, businessAsClaimer, task.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("creator claiming own task: got %v, want ErrForbidden", err)
	}

	if _, err := eng.Claim(ctx, business, task.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("business role claim: got %v, want ErrForbidden", err)
	}

	if _, err := eng.Claim(ctx, workerA, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("claim missing task: got %v, want ErrNotFound", err)
	}

	if _, err := eng.Claim(ctx, workerA, task.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := eng.Claim(ctx, workerB, task.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("claim of claimed task: got %v, want ErrConflict", err)
	}
}

func TestCompleteRejections(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	if _, err := eng.Complete(ctx, workerA, task.ID, "proof"); !errors.Is(err, ErrConflict) {
		t.Fatalf("complete open task: got %v, want ErrConflict", err)
	}

	if _, err := eng.Claim(ctx, workerA, task.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	if _, err := eng.Complete(ctx, workerA, task.ID, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank proof: got %v, want ErrValidation", err)
	}

	// Non-claimant worker cannot even see a claimed task.
	if _, err := eng.Complete(ctx, outsider, task.ID, "proof"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("outsider complete: got %v, want ErrNotFound", err)
	}
}

func TestApproveRejections(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	if _, err := eng.Claim(ctx, workerA, task.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := eng.Approve(ctx, business, task.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("approve claimed task: got %v, want ErrConflict", err)
	}
	if _, err := eng.Complete(ctx, workerA, task.ID, "proof"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if _, err := eng.Approve(ctx, workerA, task.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("claimant approve: got %v, want ErrForbidden", err)
	}

	otherBusiness := tasks.Actor{ID: 9, Role: tasks.RoleBusiness}
	if _, err := eng.Approve(ctx, otherBusiness, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other business approve: got %v, want ErrNotFound", err)
	}
}

func TestVisibility(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	// Open tasks are visible to anyone.
	if _, err := eng.Get(ctx, outsider, task.ID); err != nil {
		t.Fatalf("outsider get open task: %v", err)
	}

	if _, err := eng.Claim(ctx, workerA, task.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	// After claiming only the participants see it; everyone else gets the
	// same answer as for a task that never existed.
	if _, err := eng.Get(ctx, outsider, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("outsider get claimed task: got %v, want ErrNotFound", err)
	}
	if _, err := eng.Get(ctx, business, task.ID); err != nil {
		t.Fatalf("creator get claimed task: %v", err)
	}
	if _, err := eng.Get(ctx, workerA, task.ID); err != nil {
		t.Fatalf("claimant get claimed task: %v", err)
	}

	list, err := eng.List(ctx, outsider)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("outsider list = %d tasks, want 0", len(list))
	}
}

func TestDelete(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	task := postTask(t, eng)
	if err := eng.Delete(ctx, workerA, task.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-creator delete: got %v, want ErrForbidden", err)
	}
	if err := eng.Delete(ctx, business, task.ID); err != nil {
		t.Fatalf("creator delete open task: %v", err)
	}
	if _, err := eng.Get(ctx, business, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted task: got %v, want ErrNotFound", err)
	}

	task = postTask(t, eng)
	if _, err := eng.Claim(ctx, workerA, task.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := eng.Delete(ctx, business, task.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("delete claimed task: got %v, want ErrConflict", err)
	}
}

func TestPayableTask(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	if _, err := eng.PayableTask(ctx, business, task.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("pay open task: got %v, want ErrConflict", err)
	}

	if _, err := eng.Claim(ctx, workerA, task.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := eng.Complete(ctx, workerA, task.ID, "proof"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := eng.Approve(ctx, business, task.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if _, err := eng.PayableTask(ctx, workerA, task.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("worker pay: got %v, want ErrForbidden", err)
	}

	got, err := eng.PayableTask(ctx, business, task.ID)
	if err != nil {
		t.Fatalf("PayableTask failed: %v", err)
	}
	if got.Status != tasks.StatusApproved {
		t.Fatalf("payable status = %s, want approved (unchanged)", got.Status)
	}
}

func TestComments(t *testing.T) {
	eng, _, notifier, _ := newTestEngine(t)
	ctx := context.Background()
	task := postTask(t, eng)

	if _, err := eng.AddComment(ctx, workerA, task.ID, "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank comment: got %v, want ErrValidation", err)
	}

	c, err := eng.AddComment(ctx, workerA, task.ID, "Is this still available?")
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if c.UserID != workerA.ID || c.TaskID != task.ID {
		t.Fatalf("comment = %+v", c)
	}

	sent := notifier.all()
	if len(sent) != 1 || sent[0].RecipientID != business.ID || sent[0].Type != tasks.NotifyTaskComment {
		t.Fatalf("comment notification = %+v", sent)
	}

	list, err := eng.ListComments(ctx, business, task.ID)
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if len(list) != 1 || list[0].Message != "Is this still available?" {
		t.Fatalf("comments = %+v", list)
	}

	// Comment visibility follows task visibility.
	if _, err := eng.Claim(ctx, workerA, task.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := eng.ListComments(ctx, outsider, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("outsider list comments: got %v, want ErrNotFound", err)
	}
}
