package workers

import (
	"chat-hall/contract"
	"chat-hall/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker periodically logs broker counters together with the
// process self stats (CPU, RSS, OS status). Purely observational; it never
// touches the registry.
type TelemetryWorker struct {
	log      *slog.Logger
	counters *observability.Counters
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, counters *observability.Counters,
	interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, counters: counters, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *TelemetryWorker) report(p *process.Process) {
	stats := w.counters.Snapshot()

	rss, cpu, status, err := selfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
		return
	}

	w.log.Info("Broker telemetry",
		"jobs", stats.JobsProcessed,
		"dropped", stats.JobsDropped,
		"malformed", stats.Malformed,
		"delivered", stats.Delivered,
		"delivery_failed", stats.DeliveryFailed,
		"timeout_evicted", stats.TimeoutEvicted,
		"idle_evicted", stats.IdleEvicted,
		"rooms_reclaimed", stats.RoomsReclaimed,
		"censored", stats.MessagesCensored,
		"cpu_percent", cpu,
		"ram_bytes", rss,
		"pid_status", status,
	)
}

// selfStats retrieves memory, CPU, and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
