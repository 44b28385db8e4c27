package server

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"skillxchange/auth"
	"skillxchange/domain"
	"skillxchange/domain/event"
	"skillxchange/errors"
	"skillxchange/gateway"
	pb "skillxchange/infrastructure/grpc/chatv1"
	"skillxchange/services"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConnectionGateway is what a stream handler needs from the connection gateway.
type ConnectionGateway interface {
	Handshake(ctx context.Context, transport gateway.Transport, tokenFn gateway.TokenFunc) (*gateway.Connection, error)
	Close(connectionID string)
	Push(connectionID string, e event.Event) error
}

type ChatServer struct {
	log         *slog.Logger
	gateway     ConnectionGateway
	chatService services.IChatService
	validator   auth.Validator
	sendRate    rate.Limit
	sendBurst   int
}

func NewChatServer(log *slog.Logger, gateway ConnectionGateway, chatService services.IChatService,
	validator auth.Validator, sendRatePerSecond float64, sendBurst int) *ChatServer {
	return &ChatServer{
		log:         log,
		gateway:     gateway,
		chatService: chatService,
		validator:   validator,
		sendRate:    rate.Limit(sendRatePerSecond),
		sendBurst:   sendBurst,
	}
}

// Connect binds the stream to an authenticated connection and serves it until
// either side closes. Server events are written by the gateway, this loop only
// reads client frames.
func (s *ChatServer) Connect(stream pb.Gateway_ConnectServer) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	transport := &streamTransport{stream: stream, cancel: cancel}
	connection, err := s.gateway.Handshake(ctx, transport, tokenFromStream(stream))
	if err != nil {
		s.log.Warn("Connection refused", "error", err)
		return errors.MapToGRPCError(err)
	}
	defer s.gateway.Close(connection.ID)

	frames := make(chan *pb.Frame)
	recvErr := make(chan error, 1)
	go func() {
		for {
			frame, err := stream.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	limiter := rate.NewLimiter(s.sendRate, s.sendBurst)
	for {
		select {
		case <-connection.Done():
			return status.Error(codes.Unavailable, errors.ErrConnectionClosed.Error())
		case <-ctx.Done():
			return nil
		case err := <-recvErr:
			if err == io.EOF || status.Code(err) == codes.Canceled {
				return nil
			}
			s.log.Debug("Stream receive failed", "connection_id", connection.ID, "error", err)
			return err
		case frame := <-frames:
			s.handle(ctx, connection, limiter, frame)
		}
	}
}

func (s *ChatServer) handle(ctx context.Context, connection *gateway.Connection, limiter *rate.Limiter, frame *pb.Frame) {
	switch frame.Event {
	case pb.SendMessageEvent:
		s.sendMessage(ctx, connection, limiter, frame)
	case pb.MarkAsReadEvent:
		s.markAsRead(ctx, connection, frame)
	case pb.AuthenticateEvent:
		s.log.Debug("Already authenticated, frame ignored", "connection_id", connection.ID)
	default:
		s.log.Warn("Unknown client event", "connection_id", connection.ID, "event", frame.Event)
	}
}

func (s *ChatServer) sendMessage(ctx context.Context, connection *gateway.Connection, limiter *rate.Limiter, frame *pb.Frame) {
	payload, err := pb.Decode[pb.SendMessage](frame)
	if err != nil {
		s.fail(connection, "", err)
		return
	}
	if !limiter.Allow() {
		s.fail(connection, payload.CorrelationID, errors.ErrRateLimited)
		return
	}
	err = s.validator.ValidateSend(connection.UserID, auth.SendMessageRequest{
		ReceiverID:    payload.ReceiverID,
		Text:          payload.Text,
		CorrelationID: payload.CorrelationID,
	})
	if err != nil {
		s.fail(connection, payload.CorrelationID, err)
		return
	}

	message, err := s.chatService.Send(ctx, domain.SendMessageCommand{
		SenderID:      connection.UserID,
		ReceiverID:    payload.ReceiverID,
		Text:          payload.Text,
		CorrelationID: payload.CorrelationID,
	})
	if err != nil {
		s.fail(connection, payload.CorrelationID, err)
		return
	}
	s.push(connection, event.MessageSent{CorrelationID: payload.CorrelationID, Message: message})
}

func (s *ChatServer) markAsRead(ctx context.Context, connection *gateway.Connection, frame *pb.Frame) {
	payload, err := pb.Decode[pb.MarkAsRead](frame)
	if err == nil {
		err = s.validator.ValidateMarkAsRead(auth.MarkAsReadRequest{ConversationID: payload.ConversationID})
	}
	if err == nil {
		_, err = s.chatService.MarkRead(ctx, domain.MarkReadCommand{
			ViewerID:      connection.UserID,
			CounterpartID: payload.ConversationID,
		})
	}
	if err != nil {
		s.log.Warn("markAsRead rejected",
			"user_id", connection.UserID,
			"connection_id", connection.ID,
			"error", err)
	}
}

// fail reports a rejected send with the same wording the gRPC status would carry.
func (s *ChatServer) fail(connection *gateway.Connection, correlationID string, err error) {
	s.push(connection, event.MessageFailed{
		CorrelationID: correlationID,
		Error:         status.Convert(errors.MapToGRPCError(err)).Message(),
	})
}

func (s *ChatServer) push(connection *gateway.Connection, e event.Event) {
	if err := s.gateway.Push(connection.ID, e); err != nil {
		s.log.Debug("Unable to acknowledge", "connection_id", connection.ID, "event", e.EventName(), "error", err)
	}
}

// tokenFromStream prefers the authorization metadata and otherwise expects
// an authenticate frame first.
func tokenFromStream(stream pb.Gateway_ConnectServer) gateway.TokenFunc {
	return func(ctx context.Context) (string, error) {
		if token, ok := auth.TokenFromContext(stream.Context()); ok {
			return token, nil
		}
		frame, err := stream.Recv()
		if err != nil {
			return "", errors.ErrMissingToken
		}
		if frame.Event != pb.AuthenticateEvent {
			return "", errors.ErrMissingToken
		}
		payload, err := pb.Decode[pb.Authenticate](frame)
		if err != nil {
			return "", errors.ErrMissingToken
		}
		return payload.Token, nil
	}
}

// streamTransport adapts a Connect stream to the gateway. Once closed it
// refuses writes and ends the handler through cancel.
type streamTransport struct {
	stream pb.Gateway_ConnectServer
	cancel context.CancelFunc

	closed atomic.Bool
}

func (t *streamTransport) Send(e event.Event) error {
	frame, err := pb.FromEvent(e)
	if err != nil {
		return err
	}
	if t.closed.Load() {
		return errors.ErrConnectionClosed
	}
	return t.stream.Send(frame)
}

func (t *streamTransport) Close() error {
	t.closed.Store(true)
	t.cancel()
	return nil
}
