// Package domain contains core concepts of the messaging core.
// This file defines Message and its delivery status.
// A message status only moves forward: sent, delivered, read.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusSent
	StatusDelivered
	StatusRead
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusRead:
		return "read"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of String.
func ParseStatus(str string) (Status, error) {
	switch str {
	case "sent":
		return StatusSent, nil
	case "delivered":
		return StatusDelivered, nil
	case "read":
		return StatusRead, nil
	default:
		return StatusUnknown, fmt.Errorf("unknown message status %q", str)
	}
}

// CanAdvanceTo reports whether moving from s to next keeps the status monotonic.
func (s Status) CanAdvanceTo(next Status) bool {
	return next > s && next <= StatusRead
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Message is a direct message between exactly two users.
// ID and Seq are assigned by the store when the message is persisted.
type Message struct {
	ID         uuid.UUID `json:"id"`
	Seq        uint64    `json:"seq"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	Status     Status    `json:"status"`
}

// Counterpart returns the other participant of the message as seen by viewerID.
func (m Message) Counterpart(viewerID string) string {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// IsPersisted reports whether the store has assigned an id to the message.
func (m Message) IsPersisted() bool {
	return m.ID != uuid.Nil
}
