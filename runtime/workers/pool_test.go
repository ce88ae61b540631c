package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-hall/domain"
	"chat-hall/mocks"
	"chat-hall/observability"
)

func TestPoolWorker_ProcessesJobsInOrder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dispatcherMock := mocks.NewMockIDispatcher(ctrl)

	jobs := make(chan domain.Job, 2)
	worker := NewPoolWorker(slog.Default(), jobs, dispatcherMock, observability.NewCounters())

	first := domain.Job{Kind: domain.KindRegister, ReplyAddr: "mb-alice", User: "alice"}
	second := domain.Job{Kind: domain.KindList, ReplyAddr: "mb-alice", User: "alice"}
	jobs <- first
	jobs <- second

	handled := make(chan domain.Job, 2)
	dispatcherMock.EXPECT().
		Handle(gomock.Any()).
		Do(func(job domain.Job) { handled <- job }).
		Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		req.NoError(worker.Run(ctx))
		close(done)
	}()

	// Then both jobs come back in arrival order
	req.Equal(first, <-handled)
	req.Equal(second, <-handled)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Worker should stop on cancellation")
	}
}

func TestPoolWorker_PanicDropsOnlyTheJob(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dispatcherMock := mocks.NewMockIDispatcher(ctrl)
	counters := observability.NewCounters()

	jobs := make(chan domain.Job, 2)
	worker := NewPoolWorker(slog.Default(), jobs, dispatcherMock, counters)

	poison := domain.Job{Kind: domain.KindChat, User: "alice"}
	healthy := domain.Job{Kind: domain.KindList, User: "bob"}
	jobs <- poison
	jobs <- healthy

	handled := make(chan domain.Job, 1)
	gomock.InOrder(
		dispatcherMock.EXPECT().
			Handle(poison).
			Do(func(domain.Job) { panic("handler bug") }),
		dispatcherMock.EXPECT().
			Handle(healthy).
			Do(func(job domain.Job) { handled <- job }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// Then the worker survived the panic and processed the next job
	select {
	case job := <-handled:
		req.Equal(healthy, job)
	case <-time.After(time.Second):
		req.Fail("Worker should survive a panicking handler")
	}
	req.Equal(uint64(1), counters.Snapshot().JobsDropped)
}

func TestPoolWorker_StopsOnClosedChannel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dispatcherMock := mocks.NewMockIDispatcher(ctrl)

	jobs := make(chan domain.Job)
	close(jobs)
	worker := NewPoolWorker(slog.Default(), jobs, dispatcherMock, observability.NewCounters())

	req.NoError(worker.Run(context.Background()))
}
