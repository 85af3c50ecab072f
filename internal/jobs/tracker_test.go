package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_ingest/internal/domain"
	"news_ingest/internal/jobs/mocks"
)

type TrackerTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	tracker *Tracker
	ctx     context.Context
	now     time.Time
}

func (s *TrackerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.tracker = NewTracker(s.store)
	s.now = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.tracker.now = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func (s *TrackerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestTrackerTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func (s *TrackerTestSuite) TestCreate_StoresQueuedJob() {
	var stored *domain.Job
	s.store.EXPECT().CreateJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *domain.Job) error {
			stored = job
			return nil
		})

	job, err := s.tracker.Create(s.ctx)
	s.Require().NoError(err)

	s.Same(stored, job)
	s.Equal(domain.JobQueued, job.Status)
	s.Equal(domain.JobTypeScrape, job.JobType)
	s.Equal(s.now, job.CreatedAt)
	s.Nil(job.StartedAt)
	s.Nil(job.CompletedAt)
	_, err = uuid.Parse(job.ID)
	s.NoError(err)
}

func (s *TrackerTestSuite) TestCreate_WrapsStoreError() {
	s.store.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err := s.tracker.Create(s.ctx)
	s.ErrorContains(err, "create job")
}

func (s *TrackerTestSuite) TestTransitions_UseStateMachineSources() {
	id := uuid.NewString()
	gomock.InOrder(
		s.store.EXPECT().TransitionJob(gomock.Any(), id, []domain.JobStatus{domain.JobQueued},
			domain.JobTransition{To: domain.JobRunning, At: s.now}).Return(true, nil),
		s.store.EXPECT().TransitionJob(gomock.Any(), id, []domain.JobStatus{domain.JobRunning}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ []domain.JobStatus, t domain.JobTransition) (bool, error) {
				s.Equal(domain.JobCompleted, t.To)
				s.Require().NotNil(t.ResultCount)
				s.Equal(4, *t.ResultCount)
				return true, nil
			}),
		s.store.EXPECT().TransitionJob(gomock.Any(), id, []domain.JobStatus{domain.JobQueued, domain.JobRunning}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ []domain.JobStatus, t domain.JobTransition) (bool, error) {
				s.Equal(domain.JobFailed, t.To)
				s.Require().NotNil(t.ErrorMessage)
				s.Equal("boom", *t.ErrorMessage)
				return true, nil
			}),
	)

	s.NoError(s.tracker.Start(s.ctx, id))
	s.NoError(s.tracker.Complete(s.ctx, id, 4))
	s.NoError(s.tracker.Fail(s.ctx, id, "boom"))
}

func (s *TrackerTestSuite) TestTransition_RejectedReportsCurrentStatus() {
	id := uuid.NewString()
	s.store.EXPECT().TransitionJob(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(false, nil)
	s.store.EXPECT().GetJob(gomock.Any(), id).Return(&domain.Job{ID: id, Status: domain.JobCompleted}, nil)

	err := s.tracker.Fail(s.ctx, id, "late failure")
	s.ErrorIs(err, domain.ErrInvalidTransition)
	s.Contains(err.Error(), "completed -> failed")
}

func (s *TrackerTestSuite) TestTransition_UnknownJob() {
	id := uuid.NewString()
	s.store.EXPECT().TransitionJob(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(false, nil)
	s.store.EXPECT().GetJob(gomock.Any(), id).Return(nil, domain.ErrNotFound)

	s.ErrorIs(s.tracker.Start(s.ctx, id), domain.ErrNotFound)
}

func (s *TrackerTestSuite) TestGet_MalformedIDIsNotFound() {
	_, err := s.tracker.Get(s.ctx, "not-a-uuid")
	s.ErrorIs(err, domain.ErrNotFound)
}

func TestTracker_TerminalStatesAreAbsorbing(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newMemoryStore())

	job, err := tracker.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, tracker.Start(ctx, job.ID))
	require.NoError(t, tracker.Complete(ctx, job.ID, 2))

	assert.ErrorIs(t, tracker.Start(ctx, job.ID), domain.ErrInvalidTransition)
	assert.ErrorIs(t, tracker.Complete(ctx, job.ID, 9), domain.ErrInvalidTransition)
	assert.ErrorIs(t, tracker.Fail(ctx, job.ID, "nope"), domain.ErrInvalidTransition)

	got, err := tracker.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)
	require.NotNil(t, got.ResultCount)
	assert.Equal(t, 2, *got.ResultCount)
	assert.Nil(t, got.ErrorMessage)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
}

func TestTracker_ExactlyOneStartWins(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newMemoryStore())
	job, err := tracker.Create(ctx)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.Start(ctx, job.ID) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
