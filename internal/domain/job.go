package domain

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

const JobTypeScrape = "scrape"

// Terminal reports whether no further transition is allowed out of s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether s -> to is an edge of the job state machine.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobQueued:
		return to == JobRunning || to == JobFailed
	case JobRunning:
		return to == JobCompleted || to == JobFailed
	default:
		return false
	}
}

// Job is the audit record of one pipeline run.
type Job struct {
	ID           string     `db:"id" json:"job_id"`
	Status       JobStatus  `db:"status" json:"status"`
	JobType      string     `db:"job_type" json:"job_type"`
	CreatedAt    time.Time  `db:"created_at" json:"timestamp"`
	StartedAt    *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ResultCount  *int       `db:"result_count" json:"result_count,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
}

// JobTransition is the change applied when a job moves to status To.
type JobTransition struct {
	To           JobStatus
	At           time.Time
	ResultCount  *int
	ErrorMessage *string
}
