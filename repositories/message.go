//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"skillxchange/domain"
	"skillxchange/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	sequenceKey       = "seq:message"
	sequenceBandwidth = 256
	markReadBatch     = 512
	maxConflictRetry  = 5
)

type IMessageRepository interface {
	Save(cmd domain.SendMessageCommand) (domain.Message, error)
	Get(id uuid.UUID) (domain.Message, error)
	MarkDelivered(id uuid.UUID) (domain.Message, error)
	MarkRead(viewerID, counterpartID string) ([]domain.Message, error)
	History(viewerID, counterpartID string, cursor *string, limit int) ([]domain.Message, *string, error)
	Conversations(viewerID string) ([]domain.ConversationSummary, error)
	Peers(userID string) ([]string, error)
}

// MessageRepository is the durable message store.
//
// Keys (user ids are base64url encoded so they never contain ':'):
//
//	msg:{id}                          -> message record
//	conv:{low}:{high}:{seq}           -> message id, one entry per message of a conversation
//	unread:{receiver}:{sender}:{seq}  -> message id, present until the message is read
//	peer:{user}:{counterpart}         -> {seq}{id} of the last message exchanged
//
// The sequence is zero padded to 20 digits so lexicographical order is persistence order.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	sequence      *badger.Sequence
	limitMessages int
	now           func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages int) (*MessageRepository, error) {
	sequence, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("%w: message sequence: %v", errors.ErrPersistence, err)
	}
	return &MessageRepository{
		db:            db,
		log:           log,
		sequence:      sequence,
		limitMessages: limitMessages,
		now:           func() time.Time { return time.Now().UTC().Round(0) },
	}, nil
}

// Close returns the unused sequence range to badger.
func (m *MessageRepository) Close() error {
	return m.sequence.Release()
}

// Save persists a new message with status sent. The transaction is committed
// before Save returns, so the message is visible to any subsequent read.
func (m *MessageRepository) Save(cmd domain.SendMessageCommand) (domain.Message, error) {
	seq, err := m.sequence.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	message := domain.Message{
		ID:         id,
		Seq:        seq + 1,
		SenderID:   cmd.SenderID,
		ReceiverID: cmd.ReceiverID,
		Text:       cmd.Text,
		CreatedAt:  m.now(),
		Status:     domain.StatusSent,
	}

	err = m.update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID), encodeMessage(message)); err != nil {
			return err
		}
		if err := txn.Set(conversationKey(message.SenderID, message.ReceiverID, message.Seq), message.ID[:]); err != nil {
			return err
		}
		if err := txn.Set(unreadKey(message.ReceiverID, message.SenderID, message.Seq), message.ID[:]); err != nil {
			return err
		}
		if err := setLastMessage(txn, message.SenderID, message.ReceiverID, message); err != nil {
			return err
		}
		return setLastMessage(txn, message.ReceiverID, message.SenderID, message)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// setLastMessage only moves the conversation summary forward.
func setLastMessage(txn *badger.Txn, userID, counterpartID string, message domain.Message) error {
	key := peerKey(userID, counterpartID)
	item, err := txn.Get(key)
	switch {
	case err == nil:
		current, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(current) >= 8 && binary.BigEndian.Uint64(current[:8]) >= message.Seq {
			return nil
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}
	value := make([]byte, 8, 8+len(message.ID))
	binary.BigEndian.PutUint64(value, message.Seq)
	return txn.Set(key, append(value, message.ID[:]...))
}

func (m *MessageRepository) Get(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = getMessage(txn, id)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, fmt.Errorf("%w: message %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// MarkDelivered moves a sent message to delivered. A message already
// delivered or read is returned untouched.
func (m *MessageRepository) MarkDelivered(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.update(func(txn *badger.Txn) error {
		var err error
		message, err = getMessage(txn, id)
		if err != nil {
			return err
		}
		if !message.Status.CanAdvanceTo(domain.StatusDelivered) {
			return nil
		}
		message.Status = domain.StatusDelivered
		return txn.Set(messageKey(id), encodeMessage(message))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, fmt.Errorf("%w: message %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// MarkRead moves every message sent by counterpartID to viewerID that is not
// read yet to read, and returns the transitioned messages in persistence order.
// Calling it again when nothing is left returns an empty slice.
func (m *MessageRepository) MarkRead(viewerID, counterpartID string) ([]domain.Message, error) {
	var transitioned []domain.Message
	prefix := unreadPrefix(viewerID, counterpartID)
	for {
		var batch []domain.Message
		scanned := 0
		err := m.update(func(txn *badger.Txn) error {
			batch = nil
			keys, ids := scanUnread(txn, prefix, markReadBatch)
			scanned = len(keys)
			for i, id := range ids {
				message, err := getMessage(txn, id)
				if err != nil {
					return err
				}
				if message.Status.CanAdvanceTo(domain.StatusRead) {
					message.Status = domain.StatusRead
					if err := txn.Set(messageKey(id), encodeMessage(message)); err != nil {
						return err
					}
					batch = append(batch, message)
				}
				if err := txn.Delete(keys[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		transitioned = append(transitioned, batch...)
		if scanned < markReadBatch {
			return transitioned, nil
		}
	}
}

func scanUnread(txn *badger.Txn, prefix []byte, limit int) ([][]byte, []uuid.UUID) {
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	var keys [][]byte
	var ids []uuid.UUID
	for it.Seek(prefix); it.ValidForPrefix(prefix) && len(keys) < limit; it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			continue
		}
		id, err := uuid.FromBytes(value)
		if err != nil {
			continue
		}
		keys = append(keys, item.KeyCopy(nil))
		ids = append(ids, id)
	}
	return keys, ids
}

// History returns at most limit messages of the conversation, the most recent
// first page when cursor is nil, in chronological order.
// The returned cursor points to older messages and is nil once the beginning is reached.
func (m *MessageRepository) History(viewerID, counterpartID string, cursor *string, limit int) ([]domain.Message, *string, error) {
	if limit <= 0 || (m.limitMessages > 0 && limit > m.limitMessages) {
		limit = m.limitMessages
	}
	var messages []domain.Message
	var next *string
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := conversationPrefix(viewerID, counterpartID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append(append([]byte{}, prefix...), 0xFF)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		var lastKey string
		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				next = lo.ToPtr(lastKey)
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id, err := uuid.FromBytes(value)
			if err != nil {
				return err
			}
			message, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	slices.Reverse(messages)
	return messages, next, nil
}

// Conversations lists every conversation of viewerID with its last message and
// unread count, most recently active first.
func (m *MessageRepository) Conversations(viewerID string) ([]domain.ConversationSummary, error) {
	var summaries []domain.ConversationSummary
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := peerPrefix(viewerID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			counterpartID, err := decodeUserID(string(item.Key()[len(prefix):]))
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if len(value) != 8+16 {
				return fmt.Errorf("corrupted conversation entry for %s", counterpartID)
			}
			id, err := uuid.FromBytes(value[8:])
			if err != nil {
				return err
			}
			last, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			summaries = append(summaries, domain.ConversationSummary{
				CounterpartID: counterpartID,
				LastMessage:   last,
				UnreadCount:   countPrefix(txn, unreadPrefix(viewerID, counterpartID)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.Seq > summaries[j].LastMessage.Seq
	})
	return summaries, nil
}

// Peers returns every user userID has exchanged at least one message with.
func (m *MessageRepository) Peers(userID string) ([]string, error) {
	var peers []string
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := peerPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			peer, err := decodeUserID(string(it.Item().Key()[len(prefix):]))
			if err != nil {
				return err
			}
			peers = append(peers, peer)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return peers, nil
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	count := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count
}

// update retries transactions aborted by a concurrent write on the same keys.
func (m *MessageRepository) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetry; attempt++ {
		err = m.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		m.log.Debug("Transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}

func getMessage(txn *badger.Txn, id uuid.UUID) (domain.Message, error) {
	item, err := txn.Get(messageKey(id))
	if err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err = item.Value(func(value []byte) error {
		message, err = decodeMessage(value)
		return err
	})
	return message, err
}

func messageKey(id uuid.UUID) []byte {
	return []byte("msg:" + id.String())
}

func conversationPrefix(a, b string) []byte {
	low, high := domain.Participants(a, b)
	return []byte(fmt.Sprintf("conv:%s:%s:", encodeUserID(low), encodeUserID(high)))
}

func conversationKey(a, b string, seq uint64) []byte {
	return append(conversationPrefix(a, b), []byte(fmt.Sprintf("%020d", seq))...)
}

func unreadPrefix(receiverID, senderID string) []byte {
	return []byte(fmt.Sprintf("unread:%s:%s:", encodeUserID(receiverID), encodeUserID(senderID)))
}

func unreadKey(receiverID, senderID string, seq uint64) []byte {
	return append(unreadPrefix(receiverID, senderID), []byte(fmt.Sprintf("%020d", seq))...)
}

func peerPrefix(userID string) []byte {
	return []byte("peer:" + encodeUserID(userID) + ":")
}

func peerKey(userID, counterpartID string) []byte {
	return append(peerPrefix(userID), []byte(encodeUserID(counterpartID))...)
}

func encodeUserID(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

func decodeUserID(encoded string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(encoded, ":"))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
