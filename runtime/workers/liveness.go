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

var _ contract.Worker = (*LivenessMonitor)(nil)

// LivenessMonitor evicts users whose heartbeat went silent. Each sweep is
// snapshot-then-act: the stale names are read under lock, the lock is
// released, and eviction plus notification happen on the copy. A name that
// disappeared between snapshot and act is simply skipped.
type LivenessMonitor struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	counters    *observability.Counters
	clock       clockwork.Clock
	interval    time.Duration
	timeout     time.Duration
}

func NewLivenessMonitor(log *slog.Logger, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, counters *observability.Counters,
	clock clockwork.Clock, interval, timeout time.Duration) *LivenessMonitor {
	return &LivenessMonitor{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		counters:    counters,
		clock:       clock,
		interval:    interval,
		timeout:     timeout,
	}
}

func (w *LivenessMonitor) Run(ctx context.Context) error {
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

// Sweep runs one eviction pass. Exported so tests can drive it without the
// ticker.
func (w *LivenessMonitor) Sweep() {
	for _, user := range w.registry.ExpiredHeartbeats(w.timeout) {
		lastRoom, _, err := w.registry.Deregister(user)
		if err != nil {
			continue // already gone, e.g. the idle reaper won the race
		}
		w.counters.TimeoutEvicted.Add(1)
		w.log.Info("User timed out (no heartbeat)", "user", user, "room", lastRoom)
		w.broadcaster.BroadcastToRoom(lastRoom, user,
			domain.System(fmt.Sprintf("%s has disconnected (timeout).", user)))
	}
}
