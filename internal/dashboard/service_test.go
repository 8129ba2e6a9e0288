package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/metrics"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store/memory"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

// seedTasks writes one task per status for business 1 / worker 2.
func seedTasks(t *testing.T, st *memory.Store) {
	t.Helper()
	ctx := context.Background()
	claimant := int64(2)

	for _, status := range []tasks.Status{
		tasks.StatusOpen, tasks.StatusClaimed, tasks.StatusCompleted,
		tasks.StatusApproved, tasks.StatusPaid,
	} {
		task, err := st.CreateTask(ctx, tasks.Task{
			Title:     string(status),
			Price:     decimal.RequireFromString("100.00"),
			CreatedBy: 1,
		})
		if err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		if status == tasks.StatusOpen {
			continue
		}
		_, err = st.UpdateTask(ctx, task.ID, func(tk *tasks.Task) error {
			tk.ClaimedBy = &claimant
			tk.Status = status
			return nil
		})
		if err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
	}
}

func TestBusinessStats(t *testing.T) {
	st := memory.New()
	seedTasks(t, st)
	svc := NewService(NewMemoryCache(), st, time.Minute, metrics.New(prometheus.NewRegistry()))

	stats, err := svc.BusinessStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("BusinessStats failed: %v", err)
	}

	if stats.Posted != 5 || stats.Open != 1 || stats.Claimed != 1 || stats.Pending != 2 || stats.Paid != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if !stats.TotalPaidAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("total paid = %s, want 100.00", stats.TotalPaidAmount)
	}
}

func TestWorkerStats(t *testing.T) {
	st := memory.New()
	seedTasks(t, st)
	svc := NewService(NewMemoryCache(), st, time.Minute, metrics.New(prometheus.NewRegistry()))

	stats, err := svc.WorkerStats(context.Background(), 2)
	if err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}

	// completed + approved + paid all count as completed work.
	if stats.Claimed != 4 || stats.Completed != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if !stats.TotalEarnings.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("earnings = %s, want 100.00", stats.TotalEarnings)
	}
}

type countingStats struct {
	business int
	worker   int
	inner    *memory.Store
}

func (c *countingStats) BusinessStats(ctx context.Context, userID int64) (tasks.BusinessStats, error) {
	c.business++
	return c.inner.BusinessStats(ctx, userID)
}

func (c *countingStats) WorkerStats(ctx context.Context, userID int64) (tasks.WorkerStats, error) {
	c.worker++
	return c.inner.WorkerStats(ctx, userID)
}

func TestStatsCached(t *testing.T) {
	st := memory.New()
	seedTasks(t, st)
	counting := &countingStats{inner: st}
	svc := NewService(NewMemoryCache(), counting, time.Minute, metrics.New(prometheus.NewRegistry()))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.BusinessStats(ctx, 1); err != nil {
			t.Fatalf("BusinessStats failed: %v", err)
		}
	}
	if counting.business != 1 {
		t.Fatalf("store queries = %d, want 1 (cached)", counting.business)
	}
}

func TestStatsTTLExpiry(t *testing.T) {
	st := memory.New()
	seedTasks(t, st)
	counting := &countingStats{inner: st}

	cache := NewMemoryCache()
	current := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return current }

	svc := NewService(cache, counting, time.Minute, metrics.New(prometheus.NewRegistry()))
	ctx := context.Background()

	if _, err := svc.WorkerStats(ctx, 2); err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}
	if _, err := svc.WorkerStats(ctx, 2); err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}
	if counting.worker != 1 {
		t.Fatalf("store queries = %d before expiry, want 1", counting.worker)
	}

	current = current.Add(61 * time.Second)
	if _, err := svc.WorkerStats(ctx, 2); err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}
	if counting.worker != 2 {
		t.Fatalf("store queries = %d after expiry, want 2", counting.worker)
	}
}

func TestInvalidateTask(t *testing.T) {
	st := memory.New()
	seedTasks(t, st)
	counting := &countingStats{inner: st}
	svc := NewService(NewMemoryCache(), counting, time.Hour, metrics.New(prometheus.NewRegistry()))
	ctx := context.Background()

	if _, err := svc.BusinessStats(ctx, 1); err != nil {
		t.Fatalf("BusinessStats failed: %v", err)
	}
	if _, err := svc.WorkerStats(ctx, 2); err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}

	claimant := int64(2)
	svc.InvalidateTask(tasks.Task{CreatedBy: 1, ClaimedBy: &claimant})

	if _, err := svc.BusinessStats(ctx, 1); err != nil {
		t.Fatalf("BusinessStats failed: %v", err)
	}
	if _, err := svc.WorkerStats(ctx, 2); err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}
	if counting.business != 2 || counting.worker != 2 {
		t.Fatalf("queries business=%d worker=%d after invalidation, want 2/2", counting.business, counting.worker)
	}
}

func TestInvalidateUnclaimedTaskOnlyEvictsCreator(t *testing.T) {
	st := memory.New()
	seedTasks(t, st)
	counting := &countingStats{inner: st}
	svc := NewService(NewMemoryCache(), counting, time.Hour, metrics.New(prometheus.NewRegistry()))
	ctx := context.Background()

	if _, err := svc.WorkerStats(ctx, 2); err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}

	svc.InvalidateTask(tasks.Task{CreatedBy: 1})

	if _, err := svc.WorkerStats(ctx, 2); err != nil {
		t.Fatalf("WorkerStats failed: %v", err)
	}
	if counting.worker != 1 {
		t.Fatalf("worker queries = %d, want 1 (entry untouched)", counting.worker)
	}
}

type failingStats struct{}

func (failingStats) BusinessStats(context.Context, int64) (tasks.BusinessStats, error) {
	return tasks.BusinessStats{}, errors.New("store down")
}

func (failingStats) WorkerStats(context.Context, int64) (tasks.WorkerStats, error) {
	return tasks.WorkerStats{}, errors.New("store down")
}

func TestStatsComputeErrorNotCached(t *testing.T) {
	svc := NewService(NewMemoryCache(), failingStats{}, time.Minute, metrics.New(prometheus.NewRegistry()))

	if _, err := svc.BusinessStats(context.Background(), 1); err == nil {
		t.Fatal("expected error from failing store")
	}
}
