package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate article")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrQueueFull         = errors.New("job queue is full")
	ErrInvalidFilter     = errors.New("invalid filter")
)
