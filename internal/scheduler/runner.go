// Package scheduler polls the job store for pending export jobs and
// runs them through the pipeline one at a time.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/framecut/framecut-agent/internal/export"
	"github.com/framecut/framecut-agent/internal/logging"
	"github.com/framecut/framecut-agent/internal/store"
)

// JobProcessor runs one job to a terminal state.
type JobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

// Runner is the single worker loop. At most one job is in flight at
// any time.
type Runner struct {
	store        store.Store
	processor    JobProcessor
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(s store.Store, processor JobProcessor, pollInterval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		store:        s,
		processor:    processor,
		logger:       logging.WithComponent(logger, "scheduler"),
		pollInterval: pollInterval,
	}
}

// Start runs the poll loop until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("export scheduler started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("export scheduler stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processPendingJobs(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("export scheduler paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("export scheduler resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processPendingJobs(ctx context.Context) {
	pending, err := r.store.ListByStatus(export.StatusPending)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	r.logger.Info("found pending export jobs", "count", len(pending))

	for _, jobID := range pending {
		if ctx.Err() != nil {
			return
		}
		r.runOne(ctx, jobID)
	}
}

// runOne contains a single job's failure so one bad job never halts
// the scan of subsequent jobs.
func (r *Runner) runOne(ctx context.Context, jobID string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic processing job", "job_id", jobID, "panic", rec)
		}
	}()

	if err := r.processor.Process(ctx, jobID); err != nil {
		r.logger.Error("job processing aborted", "job_id", jobID, "error", err)
	}
}
