// Package dashboard serves cached per-role aggregate statistics. The cache
// is read-through with eager invalidation on every transition that touches
// a user's tasks; a stale entry can only survive for one TTL window.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/metrics"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

// DefaultTTL bounds staleness when an invalidation is missed.
const DefaultTTL = 5 * time.Minute

// Service handles dashboard statistics for both roles.
type Service struct {
	cache   Cache
	stats   store.StatsStore
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewService(cache Cache, stats store.StatsStore, ttl time.Duration, m *metrics.Metrics) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{cache: cache, stats: stats, ttl: ttl, metrics: m}
}

func businessKey(userID int64) string {
	return fmt.Sprintf("dashboard:business:%d", userID)
}

func workerKey(userID int64) string {
	return fmt.Sprintf("dashboard:worker:%d", userID)
}

// BusinessStats returns the business-side aggregate for the user, cached.
func (s *Service) BusinessStats(ctx context.Context, userID int64) (tasks.BusinessStats, error) {
	computed := false
	value, err := s.cache.GetOrCompute(businessKey(userID), s.ttl, func() (any, error) {
		computed = true
		return s.stats.BusinessStats(ctx, userID)
	})
	if err != nil {
		return tasks.BusinessStats{}, err
	}

	s.countLookup(computed)
	return value.(tasks.BusinessStats), nil
}

// WorkerStats returns the worker-side aggregate for the user, cached.
func (s *Service) WorkerStats(ctx context.Context, userID int64) (tasks.WorkerStats, error) {
	computed := false
	value, err := s.cache.GetOrCompute(workerKey(userID), s.ttl, func() (any, error) {
		computed = true
		return s.stats.WorkerStats(ctx, userID)
	})
	if err != nil {
		return tasks.WorkerStats{}, err
	}

	s.countLookup(computed)
	return value.(tasks.WorkerStats), nil
}

// InvalidateTask evicts the cached aggregates of every user whose dashboard
// the task contributes to: its creator and, if set, its claimant.
func (s *Service) InvalidateTask(t tasks.Task) {
	keys := []string{businessKey(t.CreatedBy)}
	if t.ClaimedBy != nil {
		keys = append(keys, workerKey(*t.ClaimedBy))
	}
	s.cache.Invalidate(keys...)
}

func (s *Service) countLookup(computed bool) {
	result := "hit"
	if computed {
		result = "miss"
	}
	s.metrics.CacheLookups.WithLabelValues(result).Inc()
}
