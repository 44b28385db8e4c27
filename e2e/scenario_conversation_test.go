package e2e

import (
	"context"
	"fmt"
	"testing"

	"skillxchange/client"
	"skillxchange/domain"
	"skillxchange/domain/event"
	pb "skillxchange/infrastructure/grpc/chatv1"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testConversationSuite struct {
	BaseGrpcSuite
}

func TestConversationSuite(t *testing.T) {
	suite.Run(t, &testConversationSuite{})
}

func (s *testConversationSuite) TestSendThenRead() {
	run := uuid.NewString()[:8]
	alice, bob := "alice-"+run, "bob-"+run
	correlationID := uuid.NewString()

	s.WithUser(alice, func(ctx context.Context, a *User) {
		s.WithUser(bob, func(ctx context.Context, b *User) {
			s.Run("Step 1: alice sees bob coming online", func() {
				status := Next[event.UserStatus](a)
				for status.UserID != bob {
					status = Next[event.UserStatus](a)
				}
				s.True(status.Online)
			})

			s.Run("Step 2: the message is acknowledged and pushed", func() {
				a.Send(pb.SendMessageEvent, pb.SendMessage{
					ReceiverID:    bob,
					Text:          fmt.Sprintf("hello from %s", alice),
					CorrelationID: correlationID,
				})
				ack := Next[event.MessageSent](a)
				s.Equal(correlationID, ack.CorrelationID)
				s.Equal(domain.StatusDelivered, ack.Message.Status)

				pushed := Next[event.NewMessage](b)
				s.Equal(ack.Message.ID, pushed.ID)
				s.Equal(alice, pushed.SenderID)
			})

			s.Run("Step 3: reading notifies the sender", func() {
				b.Send(pb.MarkAsReadEvent, pb.MarkAsRead{ConversationID: alice})
				read := Next[event.MessagesRead](a)
				s.Equal(bob, read.ConversationID)
			})

			s.Run("Step 4: the history shows the read message", func() {
				history := client.NewHistoryClient(s.Config.HTTPAddr, s.Token(bob), nil)
				messages, _, err := history.History(ctx, alice, nil, 10)
				s.Require().NoError(err)
				s.Require().Len(messages, 1)
				s.Equal(domain.StatusRead, messages[0].Status)
			})
		})
	})
}
