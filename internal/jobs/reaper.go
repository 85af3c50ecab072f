package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news_ingest/internal/domain"
)

const stuckMessage = "job exceeded the maximum run time and was abandoned"

// Reaper fails jobs left queued or running past a deadline, for example by a
// process that died mid-run.
type Reaper struct {
	tracker    *Tracker
	store      Store
	stuckAfter time.Duration
	interval   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewReaper(tracker *Tracker, store Store, stuckAfter, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		tracker:    tracker,
		store:      store,
		stuckAfter: stuckAfter,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
	}
}

// ReapOnce fails every stale job and returns how many it failed.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	stale, err := r.store.ListStaleJobs(ctx, r.now().Add(-r.stuckAfter))
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}

	reaped := 0
	for _, job := range stale {
		err := r.tracker.Fail(ctx, job.ID, stuckMessage)
		switch {
		case errors.Is(err, domain.ErrInvalidTransition):
			// Finished between the listing and the update.
			continue
		case err != nil:
			return reaped, err
		}
		r.logger.Warn("reaped stuck job",
			"job_id", job.ID,
			"status", job.Status,
			"created_at", job.CreatedAt,
			"started_at", job.StartedAt,
		)
		reaped++
	}
	return reaped, nil
}

// Run reaps once immediately and then on every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	r.reap(ctx)
	if r.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	if _, err := r.ReapOnce(ctx); err != nil {
		r.logger.Error("reaping stuck jobs failed", "error", err)
	}
}
