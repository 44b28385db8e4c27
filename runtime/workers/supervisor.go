package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"skillxchange/contract"
	"skillxchange/errors"
)

// Supervisor keeps the background workers of the server alive.
// A worker returning nil is done for good, a worker failing or panicking is
// restarted after restartInterval until the supervisor is stopped.
type Supervisor struct {
	log             *slog.Logger
	restartInterval time.Duration
	workers         []contract.Worker
	wg              sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{log: log, restartInterval: restartInterval}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every added worker and blocks until all of them returned.
// Stop only ends the workers of this supervisor, not the parent context.
func (s *Supervisor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.Start(ctx, worker)
	}
	s.wg.Wait()
}

// Start runs one worker in its own goroutine under supervision.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, worker, contract.GetWorkerName(worker))
	}()
}

func (s *Supervisor) supervise(ctx context.Context, worker contract.Worker, name string) {
	for restarts := 0; ; restarts++ {
		err := runSafely(ctx, worker)
		switch {
		case err == nil:
			s.log.Info("Worker finished", "name", name)
			return
		case ctx.Err() != nil:
			s.log.Info("Worker stopped", "name", name)
			return
		}

		s.log.Warn("Worker crashed, restarting", "name", name, "restarts", restarts, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.restartInterval):
		}
	}
}

// runSafely turns a panic of the worker into ErrWorkerPanic.
func runSafely(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
