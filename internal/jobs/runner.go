package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"news_ingest/internal/domain"
)

type RunnerConfig struct {
	Workers    int
	QueueSize  int
	RunTimeout time.Duration
}

// Runner hands queued jobs to a fixed pool of workers.
type Runner struct {
	tracker    *Tracker
	pipeline   Pipeline
	publisher  Publisher
	queue      chan string
	workers    int
	runTimeout time.Duration
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewRunner creates a runner. publisher may be nil.
func NewRunner(tracker *Tracker, pipeline Pipeline, publisher Publisher, cfg RunnerConfig, logger *slog.Logger) *Runner {
	workers := max(cfg.Workers, 1)
	return &Runner{
		tracker:    tracker,
		pipeline:   pipeline,
		publisher:  publisher,
		queue:      make(chan string, max(cfg.QueueSize, 0)),
		workers:    workers,
		runTimeout: cfg.RunTimeout,
		logger:     logger,
	}
}

// Start launches the workers. They exit when ctx is cancelled; Wait blocks
// until they have.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.work(ctx, i)
		}()
	}
	r.logger.Info("job runner started", "workers", r.workers, "queue_size", cap(r.queue))
}

func (r *Runner) Wait() {
	r.wg.Wait()
}

// Trigger creates a queued job and hands it to the pool without blocking.
// When the queue is full the job is failed and domain.ErrQueueFull is
// returned together with it.
func (r *Runner) Trigger(ctx context.Context) (*domain.Job, error) {
	job, err := r.tracker.Create(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case r.queue <- job.ID:
		r.logger.Info("job queued", "job_id", job.ID)
		return job, nil
	default:
	}

	r.logger.Warn("job queue is full", "job_id", job.ID)
	if err := r.tracker.Fail(ctx, job.ID, domain.ErrQueueFull.Error()); err != nil {
		return job, errors.Join(domain.ErrQueueFull, err)
	}
	job.Status = domain.JobFailed
	msg := domain.ErrQueueFull.Error()
	job.ErrorMessage = &msg
	r.publish(ctx, job.ID)
	return job, domain.ErrQueueFull
}

func (r *Runner) Get(ctx context.Context, id string) (*domain.Job, error) {
	return r.tracker.Get(ctx, id)
}

func (r *Runner) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.execute(ctx, id, r.logger.With("job_id", id, "worker", worker))
		}
	}
}

// execute drives one job to a terminal state, including when the pipeline panics.
func (r *Runner) execute(ctx context.Context, id string, logger *slog.Logger) {
	if err := r.tracker.Start(ctx, id); err != nil {
		logger.Warn("job not started", "error", err)
		return
	}
	logger.Info("job started")
	defer r.publish(context.WithoutCancel(ctx), id)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("pipeline panicked", "panic", rec)
			r.finish(ctx, id, nil, fmt.Errorf("pipeline panicked: %v", rec), logger)
		}
	}()

	runCtx := ctx
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	stats, err := r.pipeline.Run(runCtx, id)
	r.finish(ctx, id, stats, err, logger)
}

func (r *Runner) finish(ctx context.Context, id string, stats *domain.RunStats, runErr error, logger *slog.Logger) {
	// The terminal write must land even when shutdown cancelled ctx.
	ctx = context.WithoutCancel(ctx)

	if runErr != nil {
		logger.Error("job failed", "error", runErr)
		if err := r.tracker.Fail(ctx, id, runErr.Error()); err != nil {
			logger.Error("failed to record job failure", "error", err)
		}
		return
	}

	if err := r.tracker.Complete(ctx, id, stats.Processed); err != nil {
		logger.Error("failed to record job completion", "error", err)
		return
	}
	logger.Info("job completed", "result_count", stats.Processed, "duration", stats.Duration)
}

func (r *Runner) publish(ctx context.Context, id string) {
	if r.publisher == nil {
		return
	}
	job, err := r.tracker.Get(ctx, id)
	if err != nil {
		r.logger.Warn("failed to load job for event", "job_id", id, "error", err)
		return
	}
	if err := r.publisher.PublishJob(ctx, job); err != nil {
		r.logger.Warn("failed to publish job event", "job_id", id, "error", err)
	}
}
