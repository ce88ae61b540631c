package workers

import (
	"chat-hall/contract"
	"chat-hall/observability"
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

var _ contract.Worker = (*RoomJanitor)(nil)

// RoomJanitor reclaims rooms that emptied out and stayed inactive past the
// grace period. Emptying a room never deletes it synchronously; the room
// only disappears on a sweep, so a short-lived exodus does not destroy it.
type RoomJanitor struct {
	log      *slog.Logger
	registry contract.IRegistry
	counters *observability.Counters
	clock    clockwork.Clock
	interval time.Duration
	grace    time.Duration
}

func NewRoomJanitor(log *slog.Logger, registry contract.IRegistry,
	counters *observability.Counters, clock clockwork.Clock,
	interval, grace time.Duration) *RoomJanitor {
	return &RoomJanitor{
		log:      log,
		registry: registry,
		counters: counters,
		clock:    clock,
		interval: interval,
		grace:    grace,
	}
}

func (w *RoomJanitor) Run(ctx context.Context) error {
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

func (w *RoomJanitor) Sweep() {
	for _, room := range w.registry.ReapStaleRooms(w.grace) {
		w.counters.RoomsReclaimed.Add(1)
		w.log.Info("Room reclaimed (empty past grace period)", "room", room)
	}
}
