package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"skillxchange/auth"
	"skillxchange/domain/event"
	"skillxchange/errors"
	"skillxchange/observability"
	"skillxchange/runtime"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const secret = "gateway-test-secret"

type fakeTransport struct {
	mu      sync.Mutex
	events  []event.Event
	closed  bool
	block   chan struct{}
	sendErr error
}

func (t *fakeTransport) Send(e event.Event) error {
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.events = append(t.events, e)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) Events() []event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.Event(nil), t.events...)
}

func (t *fakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []event.UserStatus
}

func (n *recordingNotifier) Notify(status event.UserStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

func (n *recordingNotifier) Statuses() []event.UserStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]event.UserStatus(nil), n.statuses...)
}

type fixture struct {
	gateway  *Gateway
	registry *runtime.Registry
	notifier *recordingNotifier
	tokens   auth.Tokens
}

func newFixture(t *testing.T, bufferSize int, handshakeTimeout time.Duration) fixture {
	t.Helper()
	tokens := auth.NewTokens(secret, "skillxchange", time.Hour)
	registry := runtime.NewRegistry()
	notifier := &recordingNotifier{}
	gateway := NewGateway(logs.GetLoggerFromLevel(slog.LevelError), tokens, registry, notifier,
		observability.NewCollector(prometheus.NewRegistry()), bufferSize, handshakeTimeout)
	return fixture{gateway: gateway, registry: registry, notifier: notifier, tokens: tokens}
}

func (f fixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.tokens.GenerateToken(userID, nil)
	require.NoError(t, err)
	return token
}

func TestGateway_Open_Registers_Presence(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)

	connection, err := f.gateway.Open(context.Background(), &fakeTransport{}, f.token(t, "alice"))
	req.NoError(err)
	req.Equal("alice", connection.UserID)
	req.NotEmpty(connection.ID)
	req.False(connection.OpenedAt.IsZero())

	current, ok := f.registry.Lookup("alice")
	req.True(ok)
	req.Equal(connection.ID, current)
	req.Equal([]event.UserStatus{{UserID: "alice", Online: true}}, f.notifier.Statuses())
	req.Equal(1, f.gateway.Count())
}

func TestGateway_Open_Rejects_Bad_Tokens(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)
	other := auth.NewTokens("another-secret", "skillxchange", time.Hour)
	forged, err := other.GenerateToken("alice", nil)
	req.NoError(err)
	expired, err := auth.NewTokens(secret, "skillxchange", -time.Minute).GenerateToken("alice", nil)
	req.NoError(err)

	for name, token := range map[string]string{
		"missing":   "",
		"malformed": "not-a-jwt",
		"signature": forged,
		"expired":   expired,
	} {
		t.Run(name, func(t *testing.T) {
			transport := &fakeTransport{}
			_, err := f.gateway.Open(context.Background(), transport, token)
			req.ErrorIs(err, errors.ErrAuth)
			req.False(transport.Closed())
		})
	}

	_, ok := f.registry.Lookup("alice")
	req.False(ok)
	req.Empty(f.notifier.Statuses())
	req.Zero(f.gateway.Count())
}

func TestGateway_Reconnect_Then_Stale_Close(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)

	// Given alice opens two connections without closing the first one
	first, err := f.gateway.Open(context.Background(), &fakeTransport{}, f.token(t, "alice"))
	req.NoError(err)
	second, err := f.gateway.Open(context.Background(), &fakeTransport{}, f.token(t, "alice"))
	req.NoError(err)

	current, _ := f.registry.Lookup("alice")
	req.Equal(second.ID, current)

	// When the first one finally times out
	f.gateway.Close(first.ID)

	// Then the second registration survives and nobody saw alice go offline
	current, ok := f.registry.Lookup("alice")
	req.True(ok)
	req.Equal(second.ID, current)
	req.Equal([]event.UserStatus{{UserID: "alice", Online: true}}, f.notifier.Statuses())

	// And closing the second one is a real transition
	f.gateway.Close(second.ID)
	f.gateway.Close(second.ID)
	_, ok = f.registry.Lookup("alice")
	req.False(ok)
	req.Equal([]event.UserStatus{
		{UserID: "alice", Online: true},
		{UserID: "alice", Online: false},
	}, f.notifier.Statuses())
	req.Zero(f.gateway.Count())
}

func TestGateway_Close_Unknown_Connection(t *testing.T) {
	f := newFixture(t, 8, time.Second)
	f.gateway.Close("nope")
	require.Empty(t, f.notifier.Statuses())
}

func TestGateway_Push_Keeps_Order(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 64, time.Second)
	transport := &fakeTransport{}
	connection, err := f.gateway.Open(context.Background(), transport, f.token(t, "bob"))
	req.NoError(err)

	for i := 0; i < 20; i++ {
		req.NoError(f.gateway.Push(connection.ID, event.MessagesRead{ConversationID: fmt.Sprintf("user-%d", i)}))
	}

	req.Eventually(func() bool { return len(transport.Events()) == 20 }, time.Second, 5*time.Millisecond)
	for i, e := range transport.Events() {
		req.Equal(event.MessagesRead{ConversationID: fmt.Sprintf("user-%d", i)}, e)
	}
}

func TestGateway_Push_To_Closed_Connection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)
	connection, err := f.gateway.Open(context.Background(), &fakeTransport{}, f.token(t, "bob"))
	req.NoError(err)

	f.gateway.Close(connection.ID)

	req.ErrorIs(f.gateway.Push(connection.ID, event.MessagesRead{}), errors.ErrConnectionClosed)
	req.ErrorIs(f.gateway.Push("unknown", event.MessagesRead{}), errors.ErrConnectionClosed)
}

func TestGateway_Slow_Consumer_Is_Closed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 1, time.Second)
	block := make(chan struct{})
	defer close(block)
	transport := &fakeTransport{block: block}
	connection, err := f.gateway.Open(context.Background(), transport, f.token(t, "bob"))
	req.NoError(err)

	// The writer holds one event, the queue holds another, the next one overflows
	var pushErr error
	for i := 0; i < 3 && pushErr == nil; i++ {
		pushErr = f.gateway.Push(connection.ID, event.MessagesRead{ConversationID: "alice"})
	}
	req.ErrorIs(pushErr, errors.ErrSlowConsumer)

	select {
	case <-connection.Done():
	case <-time.After(time.Second):
		req.Fail("slow connection should have been closed")
	}
	req.Eventually(func() bool {
		_, ok := f.registry.Lookup("bob")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestGateway_Write_Failure_Closes_Connection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)
	transport := &fakeTransport{sendErr: fmt.Errorf("broken pipe")}
	connection, err := f.gateway.Open(context.Background(), transport, f.token(t, "bob"))
	req.NoError(err)

	req.NoError(f.gateway.Push(connection.ID, event.MessagesRead{ConversationID: "alice"}))

	select {
	case <-connection.Done():
	case <-time.After(time.Second):
		req.Fail("connection should have been closed after a write failure")
	}
	req.True(transport.Closed())
}

func TestGateway_Handshake(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)
	token := f.token(t, "alice")

	connection, err := f.gateway.Handshake(context.Background(), &fakeTransport{},
		func(ctx context.Context) (string, error) { return token, nil })
	req.NoError(err)
	req.Equal("alice", connection.UserID)
}

func TestGateway_Handshake_Window_Elapsed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, 30*time.Millisecond)
	transport := &fakeTransport{}

	// Given a client that never authenticates
	_, err := f.gateway.Handshake(context.Background(), transport,
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	// Then the transport is closed and nothing is registered
	req.ErrorIs(err, errors.ErrHandshakeTimeout)
	req.ErrorIs(err, errors.ErrAuth)
	req.True(transport.Closed())
	req.Equal([]event.Event{event.ConnectionRejected{Reason: errors.ErrHandshakeTimeout.Error()}}, transport.Events())
	req.Zero(f.registry.Online())
	req.Empty(f.notifier.Statuses())
}

func TestGateway_Handshake_Bad_Token(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)
	transport := &fakeTransport{}

	_, err := f.gateway.Handshake(context.Background(), transport,
		func(ctx context.Context) (string, error) { return "garbage", nil })

	req.ErrorIs(err, errors.ErrAuth)
	req.True(transport.Closed())
	req.Len(transport.Events(), 1)
	req.IsType(event.ConnectionRejected{}, transport.Events()[0])
	req.Zero(f.registry.Online())
}

func TestGateway_Concurrent_Open_Close(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 8, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connection, err := f.gateway.Open(context.Background(), &fakeTransport{}, f.token(t, fmt.Sprintf("user-%d", i)))
			if err != nil {
				return
			}
			f.gateway.Close(connection.ID)
		}(i)
	}
	wg.Wait()

	req.Zero(f.registry.Online())
	req.Zero(f.gateway.Count())
	req.Len(f.notifier.Statuses(), 40)
}

// pausingPresence holds the first ClearIfMatches until released.
type pausingPresence struct {
	*runtime.Registry
	once    sync.Once
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingPresence) ClearIfMatches(userID, connectionID string) bool {
	cleared := p.Registry.ClearIfMatches(userID, connectionID)
	p.once.Do(func() {
		close(p.paused)
		<-p.release
	})
	return cleared
}

func TestGateway_Close_Then_Reopen_Keeps_Broadcast_Order(t *testing.T) {
	req := require.New(t)
	tokens := auth.NewTokens(secret, "skillxchange", time.Hour)
	presence := &pausingPresence{
		Registry: runtime.NewRegistry(),
		paused:   make(chan struct{}),
		release:  make(chan struct{}),
	}
	notifier := &recordingNotifier{}
	gateway := NewGateway(logs.GetLoggerFromLevel(slog.LevelError), tokens, presence, notifier,
		observability.NewCollector(prometheus.NewRegistry()), 8, time.Second)
	token, err := tokens.GenerateToken("alice", nil)
	req.NoError(err)

	first, err := gateway.Open(context.Background(), &fakeTransport{}, token)
	req.NoError(err)

	// Given the close of the first connection stopped right after the registry cleared it
	closed := make(chan struct{})
	go func() {
		gateway.Close(first.ID)
		close(closed)
	}()
	<-presence.paused

	// When alice reconnects meanwhile
	opened := make(chan *Connection, 1)
	go func() {
		second, err := gateway.Open(context.Background(), &fakeTransport{}, token)
		if err == nil {
			opened <- second
		}
		close(opened)
	}()

	// Then the reconnection waits for the offline notification to go out first
	time.Sleep(50 * time.Millisecond)
	req.Equal([]event.UserStatus{{UserID: "alice", Online: true}}, notifier.Statuses())

	close(presence.release)
	<-closed
	var second *Connection
	select {
	case second = <-opened:
	case <-time.After(time.Second):
		req.FailNow("reconnection never completed")
	}
	req.NotNil(second)

	current, ok := presence.Lookup("alice")
	req.True(ok)
	req.Equal(second.ID, current)
	req.Equal([]event.UserStatus{
		{UserID: "alice", Online: true},
		{UserID: "alice", Online: false},
		{UserID: "alice", Online: true},
	}, notifier.Statuses())
}
