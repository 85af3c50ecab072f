package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_ingest/internal/domain"
)

// Trigger enqueues a pipeline run.
type Trigger interface {
	Trigger(ctx context.Context) (*domain.Job, error)
}

// Scheduler triggers a run at start-up and then once per interval.
type Scheduler struct {
	trigger  Trigger
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(trigger Trigger, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		trigger:  trigger,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	job, err := s.trigger.Trigger(ctx)
	if err != nil {
		s.logger.Error("scheduled run not queued", "error", err)
		return
	}
	s.logger.Info("scheduled run queued", "job_id", job.ID)
}
