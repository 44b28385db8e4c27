package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stuckServer struct {
	release chan struct{}
	stopped bool
}

func (s *stuckServer) GracefulStop() { <-s.release }

func (s *stuckServer) Stop() {
	s.stopped = true
	close(s.release)
}

func TestStopGRPC_Forces_Stop_After_Timeout(t *testing.T) {
	req := require.New(t)
	server := &stuckServer{release: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		stopGRPC(ctx, server)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.FailNow("shutdown hung on a stream that never ended")
	}
	req.True(server.stopped)
}

type quickServer struct{ stopped bool }

func (s *quickServer) GracefulStop() {}
func (s *quickServer) Stop()         { s.stopped = true }

func TestStopGRPC_Graceful_When_Streams_End(t *testing.T) {
	server := &quickServer{}
	stopGRPC(context.Background(), server)
	require.False(t, server.stopped)
}
