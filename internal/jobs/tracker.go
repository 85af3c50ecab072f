// Package jobs tracks pipeline runs through the queued, running, completed
// and failed states and executes them on a worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"news_ingest/internal/domain"
)

var allStatuses = []domain.JobStatus{
	domain.JobQueued,
	domain.JobRunning,
	domain.JobCompleted,
	domain.JobFailed,
}

// Tracker owns job state. Every transition is a conditional update, so a job
// is started by exactly one worker and reaches a terminal state once.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Create stores a new queued scrape job.
func (t *Tracker) Create(ctx context.Context) (*domain.Job, error) {
	job := &domain.Job{
		ID:        uuid.NewString(),
		Status:    domain.JobQueued,
		JobType:   domain.JobTypeScrape,
		CreatedAt: t.now().UTC(),
	}
	if err := t.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (t *Tracker) Get(ctx context.Context, id string) (*domain.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return t.store.GetJob(ctx, id)
}

func (t *Tracker) Start(ctx context.Context, id string) error {
	return t.transition(ctx, id, domain.JobTransition{To: domain.JobRunning})
}

// Complete records the number of stored articles.
func (t *Tracker) Complete(ctx context.Context, id string, resultCount int) error {
	return t.transition(ctx, id, domain.JobTransition{
		To:          domain.JobCompleted,
		ResultCount: &resultCount,
	})
}

func (t *Tracker) Fail(ctx context.Context, id string, message string) error {
	return t.transition(ctx, id, domain.JobTransition{
		To:           domain.JobFailed,
		ErrorMessage: &message,
	})
}

func (t *Tracker) transition(ctx context.Context, id string, tr domain.JobTransition) error {
	tr.At = t.now().UTC()

	ok, err := t.store.TransitionJob(ctx, id, sourcesOf(tr.To), tr)
	if err != nil {
		return fmt.Errorf("transition job to %s: %w", tr.To, err)
	}
	if ok {
		return nil
	}

	job, err := t.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("get job: %w", err)
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, job.Status, tr.To)
}

// sourcesOf lists the statuses from which to is reachable.
func sourcesOf(to domain.JobStatus) []domain.JobStatus {
	var from []domain.JobStatus
	for _, s := range allStatuses {
		if s.CanTransition(to) {
			from = append(from, s)
		}
	}
	return from
}
