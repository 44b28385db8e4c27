//go:generate go run go.uber.org/mock/mockgen -source=gateway.go -destination=../mocks/mock_gateway.go -package=mocks
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"skillxchange/contract"
	"skillxchange/domain/event"
	"skillxchange/errors"
	"skillxchange/observability"

	"github.com/google/uuid"
)

// Transport is the raw session with a client. Send is only ever called by
// one goroutine at a time.
type Transport interface {
	Send(e event.Event) error
	Close() error
}

// Verifier binds a bearer token to a user identity.
type Verifier interface {
	Verify(token string) (string, error)
}

// Presence is the write side of the presence registry.
type Presence interface {
	SetOnline(userID, connectionID string) bool
	ClearIfMatches(userID, connectionID string) bool
}

// TokenFunc waits for the client to present its token.
type TokenFunc func(ctx context.Context) (string, error)

// Connection is one authenticated session.
type Connection struct {
	ID       string
	UserID   string
	OpenedAt time.Time

	transport Transport
	outbound  chan event.Event
	done      chan struct{}
}

// Done is closed once the gateway closed the connection.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Gateway owns every open connection and is the only writer of the presence registry.
type Gateway struct {
	log              *slog.Logger
	verifier         Verifier
	presence         Presence
	notifier         contract.PresenceNotifier
	metrics          observability.MetricsCollector
	bufferSize       int
	handshakeTimeout time.Duration

	mu          sync.RWMutex
	connections map[string]*Connection

	// Held across a registry change and its notification so peers are told
	// about transitions in the order the registry saw them. Notify must not block.
	presenceMu sync.Mutex
}

func NewGateway(log *slog.Logger, verifier Verifier, presence Presence,
	notifier contract.PresenceNotifier, metrics observability.MetricsCollector,
	bufferSize int, handshakeTimeout time.Duration) *Gateway {
	return &Gateway{
		log:              log,
		verifier:         verifier,
		presence:         presence,
		notifier:         notifier,
		metrics:          metrics,
		bufferSize:       bufferSize,
		handshakeTimeout: handshakeTimeout,
		connections:      make(map[string]*Connection),
	}
}

// Handshake waits at most the handshake window for the token, then opens the
// connection. On any failure the transport is closed and nothing is registered.
func (g *Gateway) Handshake(ctx context.Context, transport Transport, tokenFn TokenFunc) (*Connection, error) {
	handshakeCtx, cancel := context.WithTimeout(ctx, g.handshakeTimeout)
	defer cancel()

	type result struct {
		token string
		err   error
	}
	// Buffered so the reader never leaks when the window elapses first
	results := make(chan result, 1)
	go func() {
		token, err := tokenFn(handshakeCtx)
		results <- result{token: token, err: err}
	}()

	var token string
	select {
	case <-handshakeCtx.Done():
		g.reject(transport, errors.ErrHandshakeTimeout)
		return nil, errors.ErrHandshakeTimeout
	case r := <-results:
		if r.err != nil {
			g.reject(transport, r.err)
			return nil, r.err
		}
		token = r.token
	}

	connection, err := g.Open(handshakeCtx, transport, token)
	if err != nil {
		g.reject(transport, err)
		return nil, err
	}
	return connection, nil
}

func (g *Gateway) reject(transport Transport, cause error) {
	g.metrics.RecordAuthFailure()
	if err := transport.Send(event.ConnectionRejected{Reason: cause.Error()}); err != nil {
		g.log.Debug("Unable to notify rejected connection", "error", err)
	}
	_ = transport.Close()
}

// Open verifies the token then registers the connection as the authoritative
// one for its user. The transport is left untouched on failure.
func (g *Gateway) Open(ctx context.Context, transport Transport, token string) (*Connection, error) {
	userID, err := g.verifier.Verify(token)
	if err != nil {
		if !errors.Is(err, errors.ErrAuth) {
			err = fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrHandshakeTimeout
	}

	connection := &Connection{
		ID:        uuid.NewString(),
		UserID:    userID,
		OpenedAt:  time.Now().UTC(),
		transport: transport,
		outbound:  make(chan event.Event, g.bufferSize),
		done:      make(chan struct{}),
	}

	g.mu.Lock()
	g.connections[connection.ID] = connection
	g.mu.Unlock()

	go g.write(connection)

	g.metrics.RecordConnectionOpened()
	g.log.Info("Connection opened", "user_id", userID, "connection_id", connection.ID)

	g.presenceMu.Lock()
	if g.presence.SetOnline(userID, connection.ID) {
		g.notifier.Notify(event.UserStatus{UserID: userID, Online: true})
	}
	g.presenceMu.Unlock()
	return connection, nil
}

// Close releases the connection. Closing twice or closing an unknown
// connection does nothing. The user goes offline only if this connection was
// still the authoritative one.
func (g *Gateway) Close(connectionID string) {
	g.mu.Lock()
	connection, ok := g.connections[connectionID]
	if ok {
		delete(g.connections, connectionID)
	}
	g.mu.Unlock()
	if !ok {
		return
	}

	close(connection.done)
	if err := connection.transport.Close(); err != nil {
		g.log.Debug("Transport close failed", "connection_id", connectionID, "error", err)
	}
	g.metrics.RecordConnectionClosed()
	g.log.Info("Connection closed", "user_id", connection.UserID, "connection_id", connectionID)

	g.presenceMu.Lock()
	if g.presence.ClearIfMatches(connection.UserID, connectionID) {
		g.notifier.Notify(event.UserStatus{UserID: connection.UserID, Online: false})
	}
	g.presenceMu.Unlock()
}

// Push queues the event without blocking. A connection that cannot keep up
// is closed and ErrSlowConsumer returned.
func (g *Gateway) Push(connectionID string, e event.Event) error {
	g.mu.RLock()
	connection, ok := g.connections[connectionID]
	g.mu.RUnlock()
	if !ok {
		return errors.ErrConnectionClosed
	}

	select {
	case <-connection.done:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case connection.outbound <- e:
		return nil
	default:
		g.log.Warn("Outbound queue full, closing connection",
			"user_id", connection.UserID,
			"connection_id", connectionID,
			"event", e.EventName())
		go g.Close(connectionID)
		return errors.ErrSlowConsumer
	}
}

// Count returns the number of open connections.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// write drains the outbound queue in order. A failed write closes the connection.
func (g *Gateway) write(connection *Connection) {
	for {
		select {
		case <-connection.done:
			return
		case e := <-connection.outbound:
			if err := connection.transport.Send(e); err != nil {
				g.log.Warn("Failed to write event",
					"user_id", connection.UserID,
					"connection_id", connection.ID,
					"event", e.EventName(),
					"error", err)
				g.Close(connection.ID)
				return
			}
		}
	}
}
