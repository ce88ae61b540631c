package workers

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/observability"
	"chat-hall/protocol"
	"context"
	"log/slog"
)

var _ contract.Worker = (*IngressRouter)(nil)

// IngressRouter is the thin external-facing loop: it pulls raw lines off
// the transport, parses them into jobs, and hands them to the dispatch
// function. A malformed line is answered directly when a reply address
// could still be recovered; it never reaches the pool.
type IngressRouter struct {
	log         *slog.Logger
	receiver    contract.Receiver
	broadcaster contract.IBroadcaster
	counters    *observability.Counters
	dispatch    func(domain.Job)
}

func NewIngressRouter(log *slog.Logger, receiver contract.Receiver,
	broadcaster contract.IBroadcaster, counters *observability.Counters,
	dispatch func(domain.Job)) *IngressRouter {
	return &IngressRouter{
		log:         log,
		receiver:    receiver,
		broadcaster: broadcaster,
		counters:    counters,
		dispatch:    dispatch,
	}
}

func (w *IngressRouter) Run(ctx context.Context) error {
	for {
		line, err := w.receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Debug("Stopping router")
				return nil
			}
			w.log.Warn("Transport receive failed", "error", err)
			continue
		}

		job, err := protocol.ParseCommand(line)
		if err != nil {
			w.counters.Malformed.Add(1)
			w.broadcaster.Deliver(job.ReplyAddr,
				domain.System("Unknown command or invalid format."))
			continue
		}
		w.dispatch(job)
	}
}
