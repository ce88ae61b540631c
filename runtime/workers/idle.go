package workers

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

var _ contract.Worker = (*IdleReaper)(nil)

// IdleReaper kicks users who stopped issuing commands, independently of
// heartbeats: a client that only pings still ages out here. The evicted
// user gets a direct notice before the room hears about it, and the
// broadcast wording is distinct from a heartbeat timeout.
type IdleReaper struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	counters    *observability.Counters
	clock       clockwork.Clock
	interval    time.Duration
	threshold   time.Duration
}

func NewIdleReaper(log *slog.Logger, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, counters *observability.Counters,
	clock clockwork.Clock, interval, threshold time.Duration) *IdleReaper {
	return &IdleReaper{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		counters:    counters,
		clock:       clock,
		interval:    interval,
		threshold:   threshold,
	}
}

func (w *IdleReaper) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			w.Sweep()
		}
	}
}

func (w *IdleReaper) Sweep() {
	for _, user := range w.registry.IdleUsers(w.threshold) {
		lastRoom, mailbox, err := w.registry.Deregister(user)
		if err != nil {
			continue
		}
		w.counters.IdleEvicted.Add(1)
		w.log.Info("User kicked (inactive)", "user", user, "room", lastRoom)
		w.broadcaster.Deliver(mailbox,
			domain.System("You were disconnected due to inactivity."))
		w.broadcaster.BroadcastToRoom(lastRoom, user,
			domain.System(fmt.Sprintf("%s has been kicked (inactive).", user)))
	}
}
