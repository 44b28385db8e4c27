// Package runtime holds the process-lifetime state of the messaging core:
// the presence registry and the supervised background workers.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"skillxchange/contract"
	"skillxchange/observability"
	"skillxchange/runtime/workers"
)

type Orchestrator struct {
	mu                sync.Mutex
	log               *slog.Logger
	supervisor        contract.ISupervisor
	registry          *Registry
	metrics           observability.MetricsCollector
	heartbeatInterval time.Duration
	workers           []contract.Worker
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry *Registry,
	metrics observability.MetricsCollector, heartbeatInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:               log,
		supervisor:        supervisor,
		registry:          registry,
		metrics:           metrics,
		heartbeatInterval: heartbeatInterval,
	}
}

// Add registers extra workers, the presence broadcaster among them.
func (o *Orchestrator) Add(worker ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, worker...)
}

// Start hands every worker to the supervisor and blocks until they all stopped.
func (o *Orchestrator) Start(ctx context.Context) {
	// 1. Preparation phase (No Lock)
	var heartbeat contract.Worker
	if o.heartbeatInterval > 0 {
		heartbeat = workers.NewHeartbeatWorker(o.log, o.registry, o.metrics, o.heartbeatInterval)
	}

	// 2. Critical Section (Short Lock)
	o.mu.Lock()
	o.supervisor.Add(o.workers...)
	if heartbeat != nil {
		o.supervisor.Add(heartbeat)
	}
	o.workers = nil
	o.mu.Unlock()

	// 3. Execution phase (No Lock)
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
}

// Stop cancels the supervised workers. Start returns once they are done.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
