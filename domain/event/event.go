// Package event defines what flows from the server to a connected client.
package event

import (
	"skillxchange/domain"
)

type Name string

const (
	NewMessageName         Name = "newMessage"
	MessageSentName        Name = "messageSent"
	MessageFailedName      Name = "messageFailed"
	MessagesReadName       Name = "messagesRead"
	UserStatusName         Name = "userStatus"
	ConnectionRejectedName Name = "connectionRejected"
)

// Event is anything the gateway can push over a connection.
type Event interface {
	EventName() Name
}

// NewMessage is pushed to the receiver when a message is delivered live.
// Its payload is the persisted message itself.
type NewMessage struct {
	domain.Message
}

func (NewMessage) EventName() Name { return NewMessageName }

// MessageSent acknowledges a sendMessage to its sender with the persisted message.
type MessageSent struct {
	CorrelationID string         `json:"correlationId"`
	Message       domain.Message `json:"message"`
}

func (MessageSent) EventName() Name { return MessageSentName }

type MessageFailed struct {
	CorrelationID string `json:"correlationId"`
	Error         string `json:"error"`
}

func (MessageFailed) EventName() Name { return MessageFailedName }

// MessagesRead tells the original sender that the user ConversationID
// has read the messages addressed to them.
type MessagesRead struct {
	ConversationID string `json:"conversationId"`
}

func (MessagesRead) EventName() Name { return MessagesReadName }

type UserStatus struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

func (UserStatus) EventName() Name { return UserStatusName }

type ConnectionRejected struct {
	Reason string `json:"error"`
}

func (ConnectionRejected) EventName() Name { return ConnectionRejectedName }
