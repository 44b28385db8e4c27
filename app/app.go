// Package app wires the messaging core into a runnable server.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"skillxchange/auth"
	"skillxchange/contract"
	"skillxchange/domain/event"
	"skillxchange/gateway"
	pb "skillxchange/infrastructure/grpc/chatv1"
	"skillxchange/infrastructure/grpc/server"
	"skillxchange/infrastructure/rest"
	"skillxchange/internal"
	"skillxchange/moderation"
	"skillxchange/observability"
	"skillxchange/repositories"
	"skillxchange/runtime"
	"skillxchange/runtime/workers"
	"skillxchange/search"
	"skillxchange/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
)

// Server holds every component of a running chat server.
type Server struct {
	Tokens       auth.Tokens
	Repository   *repositories.MessageRepository
	Registry     *runtime.Registry
	Gateway      *gateway.Gateway
	ChatService  *services.ChatService
	Orchestrator *runtime.Orchestrator
	GRPC         *grpc.Server
	HTTP         http.Handler
}

// New builds the server on an open store and index. Nothing runs until the
// orchestrator is started and the listeners are served.
func New(log *slog.Logger, config internal.Config, db *badger.DB, writer *bluge.Writer,
	reg *prometheus.Registry) (*Server, error) {
	metrics := observability.NewCollector(reg)

	moderator, err := newModerator(log, config.CensorCharacter)
	if err != nil {
		return nil, err
	}

	repository, err := repositories.NewMessageRepository(db, log, config.HistoryLimit)
	if err != nil {
		return nil, err
	}

	registry := runtime.NewRegistry()
	tokens := auth.NewTokens(config.JwtSecret, config.JwtIssuer, config.AuthTokenDuration)

	// The broadcaster pushes through the gateway and the gateway reports to the
	// broadcaster, the closure breaks the cycle.
	var fanout *workers.PresenceFanout
	gw := gateway.NewGateway(log, tokens, registry,
		contract.NotifierFunc(func(status event.UserStatus) { fanout.Notify(status) }),
		metrics, config.ConnectionBufferSize, config.HandshakeTimeout)
	fanout = workers.NewPresenceFanout(log, config.PresenceBufferSize, repository, registry, gw, metrics)

	chatService := services.NewChatService(log, repository, registry, gw, moderator,
		search.NewIndex(writer, log), metrics)

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, config.RestartInterval),
		registry, metrics, config.HeartbeatInterval)
	orchestrator.Add(fanout)

	grpcServer := grpc.NewServer(grpc.ChainStreamInterceptor(auth.StreamInterceptor))
	pb.RegisterGatewayServer(grpcServer, server.NewChatServer(log, gw, chatService,
		auth.NewValidator(config.MaxTextLength), config.SendRatePerSecond, config.SendBurst))

	router := rest.NewRouter(rest.RouterDeps{
		Log:          log,
		Verifier:     tokens,
		ChatService:  chatService,
		Gatherer:     reg,
		HistoryLimit: config.HistoryLimit,
	})

	return &Server{
		Tokens:       tokens,
		Repository:   repository,
		Registry:     registry,
		Gateway:      gw,
		ChatService:  chatService,
		Orchestrator: orchestrator,
		GRPC:         grpcServer,
		HTTP:         router,
	}, nil
}

// Close releases the store resources held by the server.
func (s *Server) Close() error {
	return s.Repository.Close()
}

func newModerator(log *slog.Logger, censorCharacter string) (*moderation.Moderator, error) {
	char, err := internal.CharacterRune(censorCharacter)
	if err != nil {
		return nil, err
	}
	data, err := moderation.NewEmbeddedLoader().LoadAll("censored")
	if err != nil {
		return nil, fmt.Errorf("load censored words: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored files loaded [%s]", len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))
	return moderation.NewModerator(data.Words, char, log)
}
