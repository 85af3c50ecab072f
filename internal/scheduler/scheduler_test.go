package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/domain"
)

type countingTrigger struct {
	calls atomic.Int32
	err   error
}

func (c *countingTrigger) Trigger(context.Context) (*domain.Job, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &domain.Job{ID: "job"}, nil
}

func TestScheduler_TriggersImmediatelyAndOnTick(t *testing.T) {
	trigger := &countingTrigger{}
	s := NewScheduler(trigger, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return trigger.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_KeepsGoingAfterTriggerError(t *testing.T) {
	trigger := &countingTrigger{err: domain.ErrQueueFull}
	s := NewScheduler(trigger, 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Start(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.GreaterOrEqual(t, trigger.calls.Load(), int32(2))
}
