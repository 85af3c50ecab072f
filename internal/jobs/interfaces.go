package jobs

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"news_ingest/internal/domain"
)

type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	// TransitionJob applies t only while the job is in one of from. It
	// reports whether a row was changed.
	TransitionJob(ctx context.Context, id string, from []domain.JobStatus, t domain.JobTransition) (bool, error)
	ListStaleJobs(ctx context.Context, before time.Time) ([]domain.Job, error)
}

// Pipeline executes one run for a job.
type Pipeline interface {
	Run(ctx context.Context, jobID string) (*domain.RunStats, error)
}

type Publisher interface {
	PublishJob(ctx context.Context, job *domain.Job) error
}
