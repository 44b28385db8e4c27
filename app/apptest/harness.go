// Package apptest runs a complete chat server in process, over bufconn.
package apptest

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"skillxchange/app"
	"skillxchange/domain/event"
	pb "skillxchange/infrastructure/grpc/chatv1"
	"skillxchange/infrastructure/grpc/client"
	"skillxchange/internal"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

// Config returns a configuration suited to tests.
func Config() internal.Config {
	return internal.Config{
		Host:                 "bufnet",
		JwtSecret:            "apptest-secret",
		JwtIssuer:            "skillxchange",
		AuthTokenDuration:    time.Hour,
		HandshakeTimeout:     2 * time.Second,
		ConnectionBufferSize: 64,
		PresenceBufferSize:   256,
		HistoryLimit:         50,
		MaxTextLength:        2000,
		SendRatePerSecond:    1000,
		SendBurst:            1000,
		CensorCharacter:      "*",
		RestartInterval:      10 * time.Millisecond,
	}
}

type Harness struct {
	Server   *app.Server
	Registry *prometheus.Registry
	Conn     *grpc.ClientConn
}

// New starts a server with the test configuration, adjusted by the options.
// Everything is torn down with the test.
func New(t *testing.T, options ...func(*internal.Config)) *Harness {
	t.Helper()
	config := Config()
	for _, option := range options {
		option(&config)
	}
	log := logs.GetLoggerFromLevel(slog.LevelError)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	server, err := app.New(log, config, db, writer, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		server.Orchestrator.Start(ctx)
		close(stopped)
	}()

	lis := bufconn.Listen(bufSize)
	go func() {
		_ = server.GRPC.Serve(lis)
	}()

	conn, err := client.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.GRPC.Stop()
		cancel()
		<-stopped
		_ = server.Close()
		_ = writer.Close()
		_ = db.Close()
	})
	return &Harness{Server: server, Registry: reg, Conn: conn}
}

// Token issues a valid token for userID.
func (h *Harness) Token(t *testing.T, userID string) string {
	t.Helper()
	token, err := h.Server.Tokens.GenerateToken(userID, nil)
	require.NoError(t, err)
	return token
}

// Peer is one client stream with its received events.
type Peer struct {
	UserID string
	Stream pb.Gateway_ConnectClient
	Events chan event.Event
	// Err receives the error that ended the stream.
	Err    chan error
	cancel context.CancelFunc
}

// Dial opens a stream with the given token, empty meaning none, without
// waiting for the handshake.
func (h *Harness) Dial(t *testing.T, token string) *Peer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Connect(ctx, h.Conn, token)
	require.NoError(t, err)

	peer := &Peer{Stream: stream, Events: make(chan event.Event, 256), Err: make(chan error, 1), cancel: cancel}
	go func() {
		defer close(peer.Events)
		for {
			frame, err := stream.Recv()
			if err != nil {
				peer.Err <- err
				return
			}
			e, err := pb.ToEvent(frame)
			if err != nil {
				continue
			}
			peer.Events <- e
		}
	}()
	t.Cleanup(peer.Close)
	return peer
}

// Connect opens an authenticated stream and waits until userID is online.
func (h *Harness) Connect(t *testing.T, userID string) *Peer {
	t.Helper()
	peer := h.Dial(t, h.Token(t, userID))
	peer.UserID = userID
	h.WaitOnline(t, userID, true)
	return peer
}

// WaitOnline waits for the presence registry to reach the expected state.
func (h *Harness) WaitOnline(t *testing.T, userID string, online bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := h.Server.Registry.Lookup(userID)
		return ok == online
	}, 2*time.Second, 5*time.Millisecond, "%s online=%v", userID, online)
}

// Close ends the stream from the client side.
func (p *Peer) Close() {
	p.cancel()
}

func (p *Peer) Send(t *testing.T, name string, payload any) {
	t.Helper()
	frame, err := pb.NewFrame(name, payload)
	require.NoError(t, err)
	require.NoError(t, p.Stream.Send(frame))
}

func (p *Peer) SendMessage(t *testing.T, receiverID, text, correlationID string) {
	t.Helper()
	p.Send(t, pb.SendMessageEvent, pb.SendMessage{ReceiverID: receiverID, Text: text, CorrelationID: correlationID})
}

func (p *Peer) MarkAsRead(t *testing.T, conversationID string) {
	t.Helper()
	p.Send(t, pb.MarkAsReadEvent, pb.MarkAsRead{ConversationID: conversationID})
}

// WaitFor returns the next event of type T, skipping any other event.
func WaitFor[T event.Event](t *testing.T, p *Peer) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-p.Events:
			if !ok {
				var zero T
				require.FailNow(t, "stream ended while waiting", "%T", zero)
			}
			if typed, ok := e.(T); ok {
				return typed
			}
		case <-timeout:
			var zero T
			require.FailNow(t, "timed out waiting for event", "%T", zero)
		}
	}
}

// Quiet asserts that no event of type T arrives within d.
func Quiet[T event.Event](t *testing.T, p *Peer, d time.Duration) {
	t.Helper()
	timeout := time.After(d)
	for {
		select {
		case e, ok := <-p.Events:
			if !ok {
				return
			}
			if _, isT := e.(T); isT {
				require.Failf(t, "unexpected event", "%#v", e)
				return
			}
		case <-timeout:
			return
		}
	}
}
