package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_ingest/internal/domain"
)

const jobColumns = `id, status, job_type, created_at, started_at, completed_at, result_count, error_message`

type JobStore struct {
	db *sqlx.DB
}

func NewJobStore(db *sqlx.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (id, status, job_type, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		job.ID,
		job.Status,
		job.JobType,
		job.CreatedAt,
	)
	return err
}

func (s *JobStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &job,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// TransitionJob updates the job only while its status is one of from, so
// concurrent callers cannot both win the same transition.
func (s *JobStore) TransitionJob(ctx context.Context, id string, from []domain.JobStatus, t domain.JobTransition) (bool, error) {
	query := `
		UPDATE jobs SET
			status = $2,
			started_at = CASE WHEN $2 = 'running' THEN $3 ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN $3 ELSE completed_at END,
			result_count = COALESCE($4, result_count),
			error_message = COALESCE($5, error_message)
		WHERE id = $1 AND status = ANY($6)`

	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		id,
		string(t.To),
		t.At,
		t.ResultCount,
		t.ErrorMessage,
		pq.Array(statuses),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListStaleJobs returns queued jobs created before the cutoff and running
// jobs started before it.
func (s *JobStore) ListStaleJobs(ctx context.Context, before time.Time) ([]domain.Job, error) {
	var jobs []domain.Job
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &jobs,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE status IN ('queued', 'running') AND COALESCE(started_at, created_at) < $1
		 ORDER BY created_at`,
		before,
	)
	return jobs, err
}
