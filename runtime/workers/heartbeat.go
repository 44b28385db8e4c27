package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"skillxchange/contract"
	"skillxchange/domain"
	"skillxchange/observability"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically publishes the process footprint and the
// number of online users.
type HeartbeatWorker struct {
	log      *slog.Logger
	presence contract.PresenceReader
	metrics  observability.MetricsCollector
	interval time.Duration
}

func NewHeartbeatWorker(
	log *slog.Logger,
	presence contract.PresenceReader,
	metrics observability.MetricsCollector,
	interval time.Duration,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:      log,
		presence: presence,
		metrics:  metrics,
		interval: interval,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			online := w.presence.Online()
			w.metrics.SetOnlineUsers(online)

			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.metrics.SetProcessStats(rss, cpu)
			w.log.Debug("Heartbeat",
				"online_users", online,
				"rss_bytes", rss,
				"cpu_percent", cpu,
				"status", domain.ParseProcessState(status))
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
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
