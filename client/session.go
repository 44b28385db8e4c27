package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"skillxchange/domain"
	"skillxchange/domain/event"
	"skillxchange/errors"
	pb "skillxchange/infrastructure/grpc/chatv1"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Stream is the client side of the Connect stream.
type Stream interface {
	Send(*pb.Frame) error
	Recv() (*pb.Frame, error)
	CloseSend() error
}

// HistoryFetcher loads a page of a conversation, most recent first page
// when cursor is nil.
type HistoryFetcher interface {
	History(ctx context.Context, counterpartID string, cursor *string, limit int) ([]domain.Message, *string, error)
}

// Session owns one connection for one user. It feeds the reconciler with what
// the server sends and exposes the events to the UI.
type Session struct {
	log        *slog.Logger
	stream     Stream
	reconciler *Reconciler
	events     chan event.Event

	sendMu sync.Mutex

	mu     sync.RWMutex
	online map[string]bool
}

func NewSession(log *slog.Logger, stream Stream, reconciler *Reconciler, bufferSize int) *Session {
	return &Session{
		log:        log,
		stream:     stream,
		reconciler: reconciler,
		events:     make(chan event.Event, bufferSize),
		online:     make(map[string]bool),
	}
}

// Events delivers every server event once the reconciler applied it.
// The channel is closed when Run returns.
func (s *Session) Events() <-chan event.Event {
	return s.events
}

func (s *Session) Reconciler() *Reconciler {
	return s.reconciler
}

// Run reads the stream until it ends. Placeholders still pending at that
// point are rolled back.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)
	defer func() {
		for _, correlationID := range s.reconciler.FailPending() {
			s.log.Debug("Send rolled back, connection lost", "correlation_id", correlationID)
		}
	}()

	for {
		frame, err := s.stream.Recv()
		if err != nil {
			if err == io.EOF || ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			if status.Code(err) == codes.Unauthenticated {
				return fmt.Errorf("%w: %v", errors.ErrAuth, err)
			}
			return err
		}

		e, err := pb.ToEvent(frame)
		if err != nil {
			s.log.Warn("Unknown server event", "event", frame.Event, "error", err)
			continue
		}
		s.apply(e)

		select {
		case s.events <- e:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) apply(e event.Event) {
	switch e := e.(type) {
	case event.NewMessage:
		s.reconciler.OnPush(e.Message)
	case event.MessageSent:
		s.reconciler.OnConfirmed(e.CorrelationID, e.Message)
	case event.MessageFailed:
		s.reconciler.OnFailed(e.CorrelationID)
	case event.MessagesRead:
		s.reconciler.OnMessagesRead(e.ConversationID)
	case event.UserStatus:
		s.mu.Lock()
		s.online[e.UserID] = e.Online
		s.mu.Unlock()
	case event.ConnectionRejected:
		s.log.Warn("Connection rejected", "reason", e.Reason)
	}
}

// Open fetches the latest page of the conversation with counterpartID and
// makes it the active one.
func (s *Session) Open(ctx context.Context, history HistoryFetcher, counterpartID string, limit int) error {
	messages, _, err := history.History(ctx, counterpartID, nil, limit)
	if err != nil {
		return err
	}
	s.reconciler.Open(counterpartID, messages)
	return nil
}

// Send shows text right away in the open conversation and sends it.
func (s *Session) Send(text string) (string, error) {
	correlationID, receiverID := s.reconciler.SendOptimistic(text)
	if correlationID == "" {
		return "", fmt.Errorf("%w: no open conversation", errors.ErrInvalidPayload)
	}
	err := s.send(pb.SendMessageEvent, pb.SendMessage{
		ReceiverID:    receiverID,
		Text:          text,
		CorrelationID: correlationID,
	})
	if err != nil {
		s.reconciler.OnFailed(correlationID)
		return "", err
	}
	return correlationID, nil
}

// MarkAsRead tells the server the open conversation has been read.
func (s *Session) MarkAsRead() error {
	counterpartID := s.reconciler.Active()
	if counterpartID == "" {
		return nil
	}
	return s.send(pb.MarkAsReadEvent, pb.MarkAsRead{ConversationID: counterpartID})
}

// Authenticate sends the token as the first frame, for streams opened
// without authorization metadata.
func (s *Session) Authenticate(token string) error {
	return s.send(pb.AuthenticateEvent, pb.Authenticate{Token: token})
}

// IsOnline reports the last presence status received for userID.
func (s *Session) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online[userID]
}

// Close ends the sending side, the server then closes the stream.
func (s *Session) Close() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.stream.CloseSend()
}

func (s *Session) send(name string, payload any) error {
	frame, err := pb.NewFrame(name, payload)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.stream.Send(frame)
}
