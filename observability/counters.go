// Package observability aggregates broker counters for the telemetry worker.
package observability

import "sync/atomic"

// Counters are updated from pool workers, sweepers, and the broadcaster.
// All fields are atomics; there is no lock to contend on the hot path.
type Counters struct {
	JobsProcessed    atomic.Uint64
	JobsDropped      atomic.Uint64
	Malformed        atomic.Uint64
	Delivered        atomic.Uint64
	DeliveryFailed   atomic.Uint64
	TimeoutEvicted   atomic.Uint64
	IdleEvicted      atomic.Uint64
	RoomsReclaimed   atomic.Uint64
	MessagesCensored atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{}
}

// Stats is a point-in-time copy used for logging and tests.
type Stats struct {
	JobsProcessed    uint64
	JobsDropped      uint64
	Malformed        uint64
	Delivered        uint64
	DeliveryFailed   uint64
	TimeoutEvicted   uint64
	IdleEvicted      uint64
	RoomsReclaimed   uint64
	MessagesCensored uint64
}

func (c *Counters) Snapshot() Stats {
	return Stats{
		JobsProcessed:    c.JobsProcessed.Load(),
		JobsDropped:      c.JobsDropped.Load(),
		Malformed:        c.Malformed.Load(),
		Delivered:        c.Delivered.Load(),
		DeliveryFailed:   c.DeliveryFailed.Load(),
		TimeoutEvicted:   c.TimeoutEvicted.Load(),
		IdleEvicted:      c.IdleEvicted.Load(),
		RoomsReclaimed:   c.RoomsReclaimed.Load(),
		MessagesCensored: c.MessagesCensored.Load(),
	}
}
