// Package broadcast turns a room name plus a message into mailbox sends.
// It reads a registry snapshot first and performs every send outside the
// registry locks; delivery is best-effort and a dead recipient never
// aborts the fan-out for the rest of the room.
package broadcast

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/observability"
	"log/slog"
)

type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	sender   contract.Sender
	counters *observability.Counters
}

var _ contract.IBroadcaster = (*Broadcaster)(nil)

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, sender contract.Sender, counters *observability.Counters) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, sender: sender, counters: counters}
}

// BroadcastToRoom delivers resp to every member of room except excludeUser.
// A failed send is logged and skipped; remaining recipients still get the
// message.
func (b *Broadcaster) BroadcastToRoom(room, excludeUser string, resp domain.Response) {
	if room == "" {
		return
	}

	members := b.registry.Snapshot(room)
	for _, member := range members {
		if member.Name == excludeUser {
			continue
		}
		if err := b.sender.TrySend(member.Mailbox, resp); err != nil {
			b.counters.DeliveryFailed.Add(1)
			b.log.Warn("Dropping undeliverable broadcast",
				"room", room, "recipient", member.Name, "error", err)
			continue
		}
		b.counters.Delivered.Add(1)
	}
}

// Deliver sends resp to a single mailbox with the same non-fatal contract.
func (b *Broadcaster) Deliver(addr string, resp domain.Response) {
	if addr == "" {
		return
	}
	if err := b.sender.TrySend(addr, resp); err != nil {
		b.counters.DeliveryFailed.Add(1)
		b.log.Warn("Dropping undeliverable message", "addr", addr, "error", err)
		return
	}
	b.counters.Delivered.Add(1)
}
