package runtime

import (
	"chat-hall/contract"
	"chat-hall/domain"
	"chat-hall/observability"
	"chat-hall/runtime/workers"
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Settings carries the broker knobs; defaults mirror the historical server.
type Settings struct {
	Workers           int
	QueueDepth        int
	LivenessInterval  time.Duration
	HeartbeatTimeout  time.Duration
	IdleInterval      time.Duration
	IdleThreshold     time.Duration
	JanitorInterval   time.Duration
	RoomGrace         time.Duration
	TelemetryInterval time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Workers:           4,
		QueueDepth:        64,
		LivenessInterval:  10 * time.Second,
		HeartbeatTimeout:  15 * time.Second,
		IdleInterval:      15 * time.Second,
		IdleThreshold:     60 * time.Second,
		JanitorInterval:   30 * time.Second,
		RoomGrace:         60 * time.Second,
		TelemetryInterval: 30 * time.Second,
	}
}

// Orchestrator wires the ingress router, the pool workers, and the sweepers
// under one supervisor. Each pool worker owns a dedicated job channel and
// the router keys a sender's jobs onto one channel by reply address, which
// gives per-sender FIFO across an otherwise unordered pool.
type Orchestrator struct {
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	dispatcher  contract.IDispatcher
	counters    *observability.Counters
	transport   contract.Transport
	clock       clockwork.Clock
	settings    Settings
	queues      []chan domain.Job
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, broadcaster contract.IBroadcaster,
	dispatcher contract.IDispatcher, counters *observability.Counters,
	transport contract.Transport, clock clockwork.Clock, settings Settings) *Orchestrator {
	if settings.Workers < 1 {
		settings.Workers = 1
	}

	queues := make([]chan domain.Job, settings.Workers)
	for i := range queues {
		queues[i] = make(chan domain.Job, settings.QueueDepth)
	}

	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		counters:    counters,
		transport:   transport,
		clock:       clock,
		settings:    settings,
		queues:      queues,
	}
}

// Dispatch places a job on its sender's queue. The push never blocks: when
// the queue is full the job is dropped and counted, so a stuck worker
// cannot back-pressure the router into a stall.
func (o *Orchestrator) Dispatch(job domain.Job) {
	queue := o.queues[o.affinity(job.ReplyAddr)]
	select {
	case queue <- job:
	default:
		o.counters.JobsDropped.Add(1)
		o.log.Warn("Job queue full, dropping command",
			"kind", job.Kind, "user", job.User)
	}
}

func (o *Orchestrator) affinity(replyAddr string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(replyAddr))
	return int(h.Sum32() % uint32(len(o.queues)))
}

// Start registers every worker with the supervisor and runs it. Blocks
// until the context is cancelled and all workers exited.
func (o *Orchestrator) Start(ctx context.Context) error {
	s := o.settings

	o.supervisor.Add(workers.NewIngressRouter(o.log, o.transport, o.broadcaster, o.counters, o.Dispatch))
	for _, queue := range o.queues {
		o.supervisor.Add(workers.NewPoolWorker(o.log, queue, o.dispatcher, o.counters))
	}
	o.supervisor.Add(
		workers.NewLivenessMonitor(o.log, o.registry, o.broadcaster, o.counters,
			o.clock, s.LivenessInterval, s.HeartbeatTimeout),
		workers.NewIdleReaper(o.log, o.registry, o.broadcaster, o.counters,
			o.clock, s.IdleInterval, s.IdleThreshold),
		workers.NewRoomJanitor(o.log, o.registry, o.counters,
			o.clock, s.JanitorInterval, s.RoomGrace),
		workers.NewTelemetryWorker(o.log, o.counters, s.TelemetryInterval),
	)

	o.log.Info("Starting orchestrator and all supervised workers",
		"workers", s.Workers, "queue_depth", s.QueueDepth)
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown: the supervised context is cancelled,
// each pool worker finishes the job it already popped, and Start returns
// once every goroutine exited.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
