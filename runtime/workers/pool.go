package workers

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/observability"
	"context"
	"log/slog"
)

// Ensure *PoolWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*PoolWorker)(nil)

// PoolWorker drains one job channel and runs the dispatcher on each job.
// The router assigns every sender to exactly one channel, so jobs from one
// sender execute on one worker in arrival order. On shutdown the worker
// finishes the job it already popped and then exits; nothing is abandoned
// mid-handler.
type PoolWorker struct {
	log        *slog.Logger
	jobs       <-chan domain.Job
	dispatcher contract.IDispatcher
	counters   *observability.Counters
}

func NewPoolWorker(log *slog.Logger, jobs <-chan domain.Job,
	dispatcher contract.IDispatcher, counters *observability.Counters) *PoolWorker {
	return &PoolWorker{log: log, jobs: jobs, dispatcher: dispatcher, counters: counters}
}

func (w *PoolWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Job channel is closed")
				return nil
			}
			w.process(job)
		}
	}
}

// process shields the pool from a faulting handler: one bad job is logged
// and dropped, the worker keeps pulling.
func (w *PoolWorker) process(job domain.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.counters.JobsDropped.Add(1)
			w.log.Error("Handler panicked, job dropped",
				"kind", job.Kind, "user", job.User, "panic", r)
		}
	}()
	w.dispatcher.Handle(job)
}
