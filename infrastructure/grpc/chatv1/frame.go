// Package chatv1 declares the realtime Connect stream: its wire frames,
// its codec and the service descriptor shared by server and client.
package chatv1

import (
	"encoding/json"
	"fmt"

	"skillxchange/domain/event"
	"skillxchange/errors"
)

// Client to server event names.
const (
	AuthenticateEvent = "authenticate"
	SendMessageEvent  = "sendMessage"
	MarkAsReadEvent   = "markAsRead"
)

// Frame is one event on the stream, in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Authenticate struct {
	Token string `json:"token"`
}

type SendMessage struct {
	ReceiverID    string `json:"receiverId"`
	Text          string `json:"text"`
	CorrelationID string `json:"correlationId"`
}

type MarkAsRead struct {
	ConversationID string `json:"conversationId"`
}

// NewFrame wraps a payload under the given event name.
func NewFrame(name string, payload any) (*Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return &Frame{Event: name, Data: data}, nil
}

// FromEvent encodes a server event.
func FromEvent(e event.Event) (*Frame, error) {
	return NewFrame(string(e.EventName()), e)
}

// Decode reads the payload of a frame into T.
func Decode[T any](f *Frame) (T, error) {
	var payload T
	if len(f.Data) == 0 {
		return payload, fmt.Errorf("%w: %s has no payload", errors.ErrInvalidPayload, f.Event)
	}
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s: %v", errors.ErrInvalidPayload, f.Event, err)
	}
	return payload, nil
}

// ToEvent decodes a server event, the inverse of FromEvent.
func ToEvent(f *Frame) (event.Event, error) {
	switch event.Name(f.Event) {
	case event.NewMessageName:
		return Decode[event.NewMessage](f)
	case event.MessageSentName:
		return Decode[event.MessageSent](f)
	case event.MessageFailedName:
		return Decode[event.MessageFailed](f)
	case event.MessagesReadName:
		return Decode[event.MessagesRead](f)
	case event.UserStatusName:
		return Decode[event.UserStatus](f)
	case event.ConnectionRejectedName:
		return Decode[event.ConnectionRejected](f)
	default:
		return nil, fmt.Errorf("%w: unknown event %q", errors.ErrInvalidPayload, f.Event)
	}
}
