//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"
	"time"

	"skillxchange/contract"
	"skillxchange/domain"
	"skillxchange/domain/event"
	"skillxchange/errors"
	"skillxchange/observability"
	"skillxchange/repositories"

	"github.com/samber/lo"
)

const conversationStripes = 64

type IChatService interface {
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	MarkRead(ctx context.Context, cmd domain.MarkReadCommand) ([]domain.Message, error)
	History(ctx context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, *string, error)
	Conversations(ctx context.Context, viewerID string) ([]domain.ConversationSummary, error)
	Search(ctx context.Context, cmd domain.SearchCommand) ([]domain.Message, error)
	IsOnline(userID string) bool
}

// ChatService is the message delivery pipeline and the read-receipt propagator.
type ChatService struct {
	log        *slog.Logger
	repository repositories.IMessageRepository
	presence   contract.PresenceReader
	pusher     contract.Pusher
	filter     contract.TextFilter
	indexer    contract.Indexer
	metrics    observability.MetricsCollector
	// One lock per stripe of conversations: persisting and queueing a message
	// happen under the same lock so pushes leave in persistence order.
	stripes [conversationStripes]sync.Mutex
}

func NewChatService(log *slog.Logger, repository repositories.IMessageRepository,
	presence contract.PresenceReader, pusher contract.Pusher,
	filter contract.TextFilter, indexer contract.Indexer,
	metrics observability.MetricsCollector) *ChatService {
	return &ChatService{
		log:        log,
		repository: repository,
		presence:   presence,
		pusher:     pusher,
		filter:     filter,
		indexer:    indexer,
		metrics:    metrics,
	}
}

// Send runs the delivery steps in a fixed order:
// filter, persist as sent, look the receiver up, push and mark delivered
// when online, then return the stored message.
// An offline receiver is not an error, the message waits in the store.
func (s *ChatService) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	start := time.Now()
	if cmd.SenderID == "" || cmd.ReceiverID == "" || cmd.SenderID == cmd.ReceiverID {
		s.metrics.RecordSendFailure("invalid_payload")
		return domain.Message{}, fmt.Errorf("%w: a message needs two distinct participants", errors.ErrInvalidPayload)
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	text, err := s.filter.Filter(cmd.SenderID, cmd.Text)
	if err != nil {
		s.metrics.RecordSendFailure("invalid_payload")
		return domain.Message{}, err
	}
	cmd.Text = text

	message, pushed, err := s.persistAndPush(cmd)
	if err != nil {
		s.metrics.RecordSendFailure("persistence")
		s.log.Error("Unable to persist message",
			"user_id", cmd.SenderID,
			"receiver_id", cmd.ReceiverID,
			"error", err)
		return domain.Message{}, err
	}
	s.metrics.RecordMessagePersisted()

	if pushed {
		delivered, err := s.repository.MarkDelivered(message.ID)
		if err != nil {
			s.log.Warn("Unable to mark message as delivered", "message_id", message.ID, "error", err)
		} else {
			message = delivered
			// The receiver may have read it already, the sender still only learns it was delivered
			message.Status = domain.StatusDelivered
			s.metrics.RecordMessageDelivered()
		}
	}

	if err := s.indexer.Index(message); err != nil {
		s.log.Warn("Unable to index message", "message_id", message.ID, "error", err)
	}

	s.metrics.RecordSendLatency(time.Since(start))
	return message, nil
}

func (s *ChatService) persistAndPush(cmd domain.SendMessageCommand) (domain.Message, bool, error) {
	lock := s.stripe(cmd.SenderID, cmd.ReceiverID)
	lock.Lock()
	defer lock.Unlock()

	message, err := s.repository.Save(cmd)
	if err != nil {
		return domain.Message{}, false, err
	}

	connectionID, online := s.presence.Lookup(message.ReceiverID)
	if !online {
		return message, false, nil
	}
	if err := s.pusher.Push(connectionID, event.NewMessage{Message: message}); err != nil {
		s.log.Debug("Live delivery refused",
			"message_id", message.ID,
			"connection_id", connectionID,
			"error", err)
		s.metrics.RecordPushDropped(string(event.NewMessageName))
		return message, false, nil
	}
	return message, true, nil
}

// MarkRead moves everything the counterpart sent to the viewer to read and,
// if anything changed, tells the counterpart when it is online.
func (s *ChatService) MarkRead(ctx context.Context, cmd domain.MarkReadCommand) ([]domain.Message, error) {
	if cmd.ViewerID == "" || cmd.CounterpartID == "" || cmd.ViewerID == cmd.CounterpartID {
		return nil, fmt.Errorf("%w: a conversation needs two distinct participants", errors.ErrInvalidPayload)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transitioned, err := s.repository.MarkRead(cmd.ViewerID, cmd.CounterpartID)
	if err != nil {
		s.log.Error("Unable to mark messages as read",
			"user_id", cmd.ViewerID,
			"counterpart_id", cmd.CounterpartID,
			"error", err)
		return nil, err
	}
	if len(transitioned) == 0 {
		return transitioned, nil
	}
	s.metrics.RecordMessagesRead(len(transitioned))

	connectionID, online := s.presence.Lookup(cmd.CounterpartID)
	if !online {
		return transitioned, nil
	}
	if err := s.pusher.Push(connectionID, event.MessagesRead{ConversationID: cmd.ViewerID}); err != nil {
		s.log.Debug("Read receipt refused", "connection_id", connectionID, "error", err)
		s.metrics.RecordPushDropped(string(event.MessagesReadName))
	}
	return transitioned, nil
}

func (s *ChatService) History(_ context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, *string, error) {
	return s.repository.History(cmd.ViewerID, cmd.CounterpartID, cmd.Cursor, cmd.Limit)
}

func (s *ChatService) Conversations(_ context.Context, viewerID string) ([]domain.ConversationSummary, error) {
	return s.repository.Conversations(viewerID)
}

// Search returns the matching messages of a conversation in chronological order.
func (s *ChatService) Search(ctx context.Context, cmd domain.SearchCommand) ([]domain.Message, error) {
	ids, err := s.indexer.Search(ctx, cmd.ViewerID, cmd.CounterpartID, cmd.Terms, cmd.Limit)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		message, err := s.repository.Get(id)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	// The index is only a hint, the store decides who can read what
	messages = lo.Filter(messages, func(m domain.Message, _ int) bool {
		return m.Counterpart(cmd.ViewerID) == cmd.CounterpartID &&
			(m.SenderID == cmd.ViewerID || m.ReceiverID == cmd.ViewerID)
	})
	sort.Slice(messages, func(i, j int) bool { return messages[i].Seq < messages[j].Seq })
	return messages, nil
}

func (s *ChatService) IsOnline(userID string) bool {
	_, ok := s.presence.Lookup(userID)
	return ok
}

func (s *ChatService) stripe(a, b string) *sync.Mutex {
	low, high := domain.Participants(a, b)
	h := fnv.New32a()
	_, _ = h.Write([]byte(low))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(high))
	return &s.stripes[h.Sum32()%conversationStripes]
}
