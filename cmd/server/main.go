package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillxchange/app"
	"skillxchange/internal"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the server and blocks until a signal or a listener failure.
// Every defer runs before main exits.
func run() error {
	// 1. Configuration & Logger, a .env file is optional
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Message store (BadgerDB) and search index (bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithSyncWrites(config.BadgerSyncWrites).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = writer.Close()
	}()

	// 3. Components
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	server, err := app.New(log, config, db, writer, registry)
	if err != nil {
		return err
	}
	defer func() { _ = server.Close() }()

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)
	go server.Orchestrator.Start(ctx)

	// 5. gRPC stream gateway
	grpcListener, err := net.Listen("tcp", config.GrpcAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.GrpcAddress(), err)
	}
	go func() {
		log.Info("Starting gRPC server", "address", config.GrpcAddress(), "at", time.Now().UTC())
		if err := server.GRPC.Serve(grpcListener); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 6. REST history and metrics
	httpServer := &http.Server{
		Addr:              config.HttpAddress(),
		Handler:           server.HTTP,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", "address", config.HttpAddress())
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		log.Error("Server failure, shutting down", "error", err)
		shutdown(httpServer, server)
		return err
	}

	// 8. Final Cleanup
	shutdown(httpServer, server)
	log.Info("Program stopped cleanly")
	return nil
}

// shutdown gives open streams shutdownTimeout to end, then cuts them.
func shutdown(httpServer *http.Server, server *app.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	stopGRPC(ctx, server.GRPC)
	server.Orchestrator.Stop()
}

func stopGRPC(ctx context.Context, s grpcStopper) {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.Stop()
		<-stopped
	}
}

type grpcStopper interface {
	GracefulStop()
	Stop()
}
