package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_ingest/internal/domain"
	"news_ingest/internal/jobs/mocks"
)

type RunnerTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *memoryStore
	tracker   *Tracker
	pipeline  *mocks.MockPipeline
	publisher *mocks.MockPublisher
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func (s *RunnerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = newMemoryStore()
	s.tracker = NewTracker(s.store)
	s.pipeline = mocks.NewMockPipeline(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx, s.cancel = context.WithCancel(context.Background())
}

func (s *RunnerTestSuite) TearDownTest() {
	s.cancel()
	s.ctrl.Finish()
}

func TestRunnerTestSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (s *RunnerTestSuite) runner(cfg RunnerConfig, publisher Publisher) *Runner {
	return NewRunner(s.tracker, s.pipeline, publisher, cfg, s.logger)
}

func (s *RunnerTestSuite) waitTerminal(id string) *domain.Job {
	var job *domain.Job
	s.Require().Eventually(func() bool {
		got, err := s.store.GetJob(s.ctx, id)
		if err != nil {
			return false
		}
		job = got
		return got.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func (s *RunnerTestSuite) TestTrigger_ReturnsQueuedJobAndCompletes() {
	s.pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&domain.RunStats{Processed: 3}, nil)
	published := make(chan *domain.Job, 1)
	s.publisher.EXPECT().PublishJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *domain.Job) error {
			published <- job
			return nil
		})

	r := s.runner(RunnerConfig{Workers: 1, QueueSize: 4}, s.publisher)
	job, err := r.Trigger(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.JobQueued, job.Status)

	r.Start(s.ctx)

	done := s.waitTerminal(job.ID)
	s.Equal(domain.JobCompleted, done.Status)
	s.Require().NotNil(done.ResultCount)
	s.Equal(3, *done.ResultCount)
	s.Nil(done.ErrorMessage)
	s.NotNil(done.StartedAt)

	select {
	case event := <-published:
		s.Equal(domain.JobCompleted, event.Status)
	case <-time.After(2 * time.Second):
		s.Fail("job event not published")
	}
}

func (s *RunnerTestSuite) TestPipelineError_FailsJobWithMessage() {
	s.pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, errors.New("persistence: insert article: connection refused"))

	r := s.runner(RunnerConfig{Workers: 1, QueueSize: 1}, nil)
	r.Start(s.ctx)
	job, err := r.Trigger(s.ctx)
	s.Require().NoError(err)

	done := s.waitTerminal(job.ID)
	s.Equal(domain.JobFailed, done.Status)
	s.Require().NotNil(done.ErrorMessage)
	s.Equal("persistence: insert article: connection refused", *done.ErrorMessage)
	s.Nil(done.ResultCount)
}

func (s *RunnerTestSuite) TestPipelinePanic_FailsJob() {
	s.pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) (*domain.RunStats, error) {
			panic("nil map write")
		})

	r := s.runner(RunnerConfig{Workers: 1, QueueSize: 1}, nil)
	r.Start(s.ctx)
	job, err := r.Trigger(s.ctx)
	s.Require().NoError(err)

	done := s.waitTerminal(job.ID)
	s.Equal(domain.JobFailed, done.Status)
	s.Require().NotNil(done.ErrorMessage)
	s.Contains(*done.ErrorMessage, "nil map write")
}

func (s *RunnerTestSuite) TestRunTimeoutReachesPipeline() {
	s.pipeline.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (*domain.RunStats, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	r := s.runner(RunnerConfig{Workers: 1, QueueSize: 1, RunTimeout: 20 * time.Millisecond}, nil)
	r.Start(s.ctx)
	job, err := r.Trigger(s.ctx)
	s.Require().NoError(err)

	done := s.waitTerminal(job.ID)
	s.Equal(domain.JobFailed, done.Status)
	s.Contains(*done.ErrorMessage, "deadline exceeded")
}

func (s *RunnerTestSuite) TestTrigger_FullQueueFailsJob() {
	s.publisher.EXPECT().PublishJob(gomock.Any(), gomock.Any()).Return(nil)

	r := s.runner(RunnerConfig{Workers: 1, QueueSize: 0}, s.publisher)
	job, err := r.Trigger(s.ctx)

	s.ErrorIs(err, domain.ErrQueueFull)
	s.Require().NotNil(job)
	s.Equal(domain.JobFailed, job.Status)

	stored, err := s.store.GetJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(domain.JobFailed, stored.Status)
	s.Equal("job queue is full", *stored.ErrorMessage)
}

func (s *RunnerTestSuite) TestWorkersStopOnCancel() {
	r := s.runner(RunnerConfig{Workers: 3, QueueSize: 1}, nil)
	r.Start(s.ctx)
	s.cancel()

	stopped := make(chan struct{})
	go func() {
		r.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		s.Fail("workers did not stop")
	}
}
