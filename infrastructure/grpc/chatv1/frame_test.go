package chatv1

import (
	"testing"
	"time"

	"skillxchange/domain"
	"skillxchange/domain/event"
	"skillxchange/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFrame_NewMessage_Is_The_Flat_Message(t *testing.T) {
	req := require.New(t)
	message := domain.Message{
		ID:         uuid.Must(uuid.NewV7()),
		Seq:        3,
		SenderID:   "alice",
		ReceiverID: "bob",
		Text:       "hello",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:     domain.StatusDelivered,
	}

	frame, err := FromEvent(event.NewMessage{Message: message})
	req.NoError(err)
	req.Equal("newMessage", frame.Event)
	req.Contains(string(frame.Data), `"senderId":"alice"`)
	req.Contains(string(frame.Data), `"status":"delivered"`)

	decoded, err := ToEvent(frame)
	req.NoError(err)
	req.Equal(event.NewMessage{Message: message}, decoded)
}

func TestFrame_Server_Events(t *testing.T) {
	req := require.New(t)
	for _, e := range []event.Event{
		event.MessagesRead{ConversationID: "bob"},
		event.UserStatus{UserID: "bob", Online: true},
		event.MessageFailed{CorrelationID: "c-1", Error: "invalid payload"},
		event.ConnectionRejected{Reason: "authentication failed"},
	} {
		frame, err := FromEvent(e)
		req.NoError(err)
		decoded, err := ToEvent(frame)
		req.NoError(err)
		req.Equal(e, decoded)
	}
}

func TestFrame_Decode_Errors(t *testing.T) {
	req := require.New(t)

	_, err := Decode[SendMessage](&Frame{Event: SendMessageEvent})
	req.ErrorIs(err, errors.ErrInvalidPayload)

	_, err = Decode[SendMessage](&Frame{Event: SendMessageEvent, Data: []byte(`{"text":`)})
	req.ErrorIs(err, errors.ErrInvalidPayload)

	_, err = ToEvent(&Frame{Event: "typing", Data: []byte(`{}`)})
	req.ErrorIs(err, errors.ErrInvalidPayload)

	payload, err := Decode[MarkAsRead](&Frame{Event: MarkAsReadEvent, Data: []byte(`{"conversationId":"alice"}`)})
	req.NoError(err)
	req.Equal("alice", payload.ConversationID)
}
