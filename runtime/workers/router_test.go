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
	"chat-hall/transport/channel"
)

func TestIngressRouter_ParsesAndDispatches(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	broadcasterMock := mocks.NewMockIBroadcaster(ctrl)
	transport := channel.NewTransport(8)

	dispatched := make(chan domain.Job, 1)
	router := NewIngressRouter(slog.Default(), transport, broadcasterMock,
		observability.NewCounters(), func(job domain.Job) { dispatched <- job })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	// When a well-formed line arrives
	transport.Submit("REGISTER|mb-alice|alice")

	// Then the parsed job reaches the dispatch function
	select {
	case job := <-dispatched:
		req.Equal(domain.KindRegister, job.Kind)
		req.Equal("mb-alice", job.ReplyAddr)
		req.Equal("alice", job.User)
	case <-time.After(time.Second):
		req.Fail("Expected the line to be dispatched")
	}
}

func TestIngressRouter_MalformedLineAnsweredDirectly(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	broadcasterMock := mocks.NewMockIBroadcaster(ctrl)
	counters := observability.NewCounters()
	transport := channel.NewTransport(8)

	answered := make(chan struct{}, 1)
	broadcasterMock.EXPECT().
		Deliver("mb-alice", domain.System("Unknown command or invalid format.")).
		Do(func(string, domain.Response) { answered <- struct{}{} })

	router := NewIngressRouter(slog.Default(), transport, broadcasterMock,
		counters, func(domain.Job) {
			t.Error("A malformed line must never reach the pool")
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	// When a line with a bad field count arrives
	transport.Submit("REGISTER|mb-alice")

	// Then the sender is answered directly and the line is counted
	select {
	case <-answered:
	case <-time.After(time.Second):
		req.Fail("Expected a direct rejection notice")
	}
	req.Equal(uint64(1), counters.Snapshot().Malformed)
}

func TestIngressRouter_StopsOnCancellation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	broadcasterMock := mocks.NewMockIBroadcaster(ctrl)
	transport := channel.NewTransport(8)

	router := NewIngressRouter(slog.Default(), transport, broadcasterMock,
		observability.NewCounters(), func(domain.Job) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		req.NoError(router.Run(ctx))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Router should stop when the context is cancelled")
	}
}
