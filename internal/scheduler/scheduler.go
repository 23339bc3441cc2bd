package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/internal/options"
)

// Package scheduler runs one-shot jobs persisted in the option store. A job
// fires once and is removed before its handler runs; handlers that want to
// recur schedule their own next run. Jobs survive restarts because the store
// is durable.

const namespace = "scheduler"

// Job is a pending scheduled run.
type Job struct {
	ID       string    `json:"id"`
	RunAt    time.Time `json:"run_at"`
	Interval string    `json:"interval"`
}

// Store persists pending jobs, keyed by job id.
type Store struct {
	store options.Store
}

// NewStore wraps an option store as job storage.
func NewStore(store options.Store) *Store {
	return &Store{store: store}
}

// ScheduleAt persists a job firing at the given time. An existing job with
// the same id is replaced.
func (s *Store) ScheduleAt(at time.Time, interval, jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	job := Job{ID: jobID, RunAt: at.UTC(), Interval: interval}
	if err := s.store.Set(namespace, jobID, job); err != nil {
		return fmt.Errorf("store job %s: %w", jobID, err)
	}
	return nil
}

// Clear removes the pending job, if any.
func (s *Store) Clear(jobID string) error {
	if err := s.store.Delete(namespace, jobID); err != nil {
		return fmt.Errorf("clear job %s: %w", jobID, err)
	}
	return nil
}

// Current returns the interval name of the pending job and whether one exists.
func (s *Store) Current(jobID string) (string, bool, error) {
	var job Job
	found, err := s.store.Get(namespace, jobID, &job)
	if err != nil {
		return "", false, fmt.Errorf("read job %s: %w", jobID, err)
	}
	if !found {
		return "", false, nil
	}
	return job.Interval, true, nil
}

// Due returns the jobs whose run time has passed, ordered by run time.
func (s *Store) Due(now time.Time) ([]Job, error) {
	keys, err := s.store.Keys(namespace)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	var due []Job
	for _, key := range keys {
		var job Job
		found, err := s.store.Get(namespace, key, &job)
		if err != nil {
			return nil, fmt.Errorf("read job %s: %w", key, err)
		}
		if !found {
			continue
		}
		if !job.RunAt.After(now) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	return due, nil
}

// Handler executes one fired job.
type Handler func(ctx context.Context) error

// Runner polls the store and fires due jobs.
type Runner struct {
	store *Store
	poll  time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRunner builds a runner polling at the given interval.
func NewRunner(store *Store, poll time.Duration) *Runner {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Runner{
		store:    store,
		poll:     poll,
		now:      time.Now,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job id. Fired jobs without a handler are
// dropped with a warning.
func (r *Runner) Register(jobID string, h Handler) {
	if jobID == "" || h == nil {
		return
	}
	r.mu.Lock()
	r.handlers[jobID] = h
	r.mu.Unlock()
}

// Run polls until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunPending(ctx)
		}
	}
}

// RunPending fires every due job once. The job entry is removed before the
// handler runs so a rescheduling handler never races its own pending entry.
func (r *Runner) RunPending(ctx context.Context) {
	due, err := r.store.Due(r.now())
	if err != nil {
		logger.ErrorObj("scheduler poll failed", "scheduler_error", map[string]any{
			"error": err.Error(),
		})
		return
	}

	for _, job := range due {
		r.mu.RLock()
		handler := r.handlers[job.ID]
		r.mu.RUnlock()

		if err := r.store.Clear(job.ID); err != nil {
			logger.ErrorObj("scheduler job clear failed", "scheduler_error", map[string]any{
				"job_id": job.ID,
				"error":  err.Error(),
			})
			continue
		}
		if handler == nil {
			logger.WarnObj("scheduler dropped job without handler", "scheduler_orphan_job", map[string]any{
				"job_id": job.ID,
			})
			continue
		}
		if err := handler(ctx); err != nil {
			logger.ErrorObj("scheduled job failed", "scheduler_job_error", map[string]any{
				"job_id":   job.ID,
				"interval": job.Interval,
				"error":    err.Error(),
			})
		}
	}
}
