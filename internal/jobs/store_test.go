package jobs

import (
	"context"
	"slices"
	"sync"
	"time"

	"news_ingest/internal/domain"
)

// memoryStore applies transitions with the same conditional semantics as the
// SQL store.
type memoryStore struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[string]domain.Job)}
}

func (m *memoryStore) CreateJob(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memoryStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *memoryStore) TransitionJob(_ context.Context, id string, from []domain.JobStatus, t domain.JobTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || !slices.Contains(from, job.Status) {
		return false, nil
	}
	job.Status = t.To
	at := t.At
	if t.To == domain.JobRunning {
		job.StartedAt = &at
	}
	if t.To.Terminal() {
		job.CompletedAt = &at
	}
	if t.ResultCount != nil {
		job.ResultCount = t.ResultCount
	}
	if t.ErrorMessage != nil {
		job.ErrorMessage = t.ErrorMessage
	}
	m.jobs[id] = job
	return true, nil
}

func (m *memoryStore) ListStaleJobs(_ context.Context, before time.Time) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, job := range m.jobs {
		since := job.CreatedAt
		if job.StartedAt != nil {
			since = *job.StartedAt
		}
		if !job.Status.Terminal() && since.Before(before) {
			out = append(out, job)
		}
	}
	return out, nil
}

func (m *memoryStore) put(job domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}
