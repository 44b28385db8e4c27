package server_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"skillxchange/app/apptest"
	"skillxchange/auth"
	"skillxchange/domain"
	"skillxchange/domain/event"
	pb "skillxchange/infrastructure/grpc/chatv1"
	"skillxchange/internal"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestConnect_Send_To_Online_Receiver(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)
	alice := h.Connect(t, "alice")
	bob := h.Connect(t, "bob")

	alice.SendMessage(t, "bob", "hello bob", "c-1")

	ack := apptest.WaitFor[event.MessageSent](t, alice)
	req.Equal("c-1", ack.CorrelationID)
	req.Equal("hello bob", ack.Message.Text)
	req.Equal(domain.StatusDelivered, ack.Message.Status)

	pushed := apptest.WaitFor[event.NewMessage](t, bob)
	req.Equal(ack.Message.ID, pushed.ID)
	req.Equal("alice", pushed.SenderID)
	req.Equal("hello bob", pushed.Text)
}

func TestConnect_Send_To_Offline_Receiver(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)
	alice := h.Connect(t, "alice")

	alice.SendMessage(t, "carol", "see you tomorrow", "c-1")
	ack := apptest.WaitFor[event.MessageSent](t, alice)
	req.Equal(domain.StatusSent, ack.Message.Status)

	// The message waits in the store for carol
	history, _, err := h.Server.ChatService.History(context.Background(), domain.GetHistoryCommand{
		ViewerID: "carol", CounterpartID: "alice", Limit: 10,
	})
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(ack.Message.ID, history[0].ID)
}

func TestConnect_Sends_Keep_Order(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)
	alice := h.Connect(t, "alice")
	bob := h.Connect(t, "bob")

	texts := []string{"one", "two", "three", "four", "five"}
	for _, text := range texts {
		alice.SendMessage(t, "bob", text, text)
	}
	for _, text := range texts {
		req.Equal(text, apptest.WaitFor[event.NewMessage](t, bob).Text)
	}
}

func TestConnect_MarkAsRead_Notifies_Sender(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)
	alice := h.Connect(t, "alice")
	bob := h.Connect(t, "bob")

	alice.SendMessage(t, "bob", "are you there?", "c-1")
	apptest.WaitFor[event.NewMessage](t, bob)

	bob.MarkAsRead(t, "alice")

	read := apptest.WaitFor[event.MessagesRead](t, alice)
	req.Equal("bob", read.ConversationID)

	summaries, err := h.Server.ChatService.Conversations(context.Background(), "bob")
	req.NoError(err)
	req.Len(summaries, 1)
	req.Zero(summaries[0].UnreadCount)
	req.Equal(domain.StatusRead, summaries[0].LastMessage.Status)
}

func TestConnect_Authenticate_Frame(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)

	// Given a stream opened without metadata
	peer := h.Dial(t, "")
	peer.Send(t, pb.AuthenticateEvent, pb.Authenticate{Token: h.Token(t, "alice")})

	h.WaitOnline(t, "alice", true)
	peer.SendMessage(t, "bob", "hi", "c-1")
	req.Equal("alice", apptest.WaitFor[event.MessageSent](t, peer).Message.SenderID)
}

func TestConnect_Rejects_Bad_Token(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)
	forged, err := auth.NewTokens("not-the-secret", "skillxchange", time.Hour).GenerateToken("alice", nil)
	req.NoError(err)

	peer := h.Dial(t, forged)

	rejected := apptest.WaitFor[event.ConnectionRejected](t, peer)
	req.Contains(rejected.Reason, "authentication failed")
	select {
	case err := <-peer.Err:
		req.Equal(codes.Unauthenticated, status.Code(err))
	case <-time.After(2 * time.Second):
		req.Fail("stream should have been closed")
	}
	req.Zero(h.Server.Registry.Online())
}

func TestConnect_Handshake_Window(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t, func(c *internal.Config) { c.HandshakeTimeout = 50 * time.Millisecond })

	// Given a client that never authenticates
	peer := h.Dial(t, "")

	rejected := apptest.WaitFor[event.ConnectionRejected](t, peer)
	req.Contains(rejected.Reason, "handshake window elapsed")
	select {
	case err := <-peer.Err:
		req.Equal(codes.Unauthenticated, status.Code(err))
	case <-time.After(2 * time.Second):
		req.Fail("stream should have been closed")
	}
}

func TestConnect_Invalid_Send_Is_Reported(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t, func(c *internal.Config) { c.MaxTextLength = 10 })
	alice := h.Connect(t, "alice")

	alice.SendMessage(t, "alice", "talking to myself", "c-self")
	failed := apptest.WaitFor[event.MessageFailed](t, alice)
	req.Equal("c-self", failed.CorrelationID)
	req.Contains(failed.Error, "invalid payload")

	alice.SendMessage(t, "bob", strings.Repeat("a", 11), "c-long")
	failed = apptest.WaitFor[event.MessageFailed](t, alice)
	req.Equal("c-long", failed.CorrelationID)

	alice.SendMessage(t, "bob", "<p></p>", "c-empty")
	failed = apptest.WaitFor[event.MessageFailed](t, alice)
	req.Equal("c-empty", failed.CorrelationID)

	// The connection is still usable
	alice.SendMessage(t, "bob", "hi", "c-ok")
	req.Equal("c-ok", apptest.WaitFor[event.MessageSent](t, alice).CorrelationID)
}

func TestConnect_Rate_Limited(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t, func(c *internal.Config) {
		c.SendRatePerSecond = 0.01
		c.SendBurst = 1
	})
	alice := h.Connect(t, "alice")

	alice.SendMessage(t, "bob", "first", "c-1")
	alice.SendMessage(t, "bob", "second", "c-2")

	req.Equal("c-1", apptest.WaitFor[event.MessageSent](t, alice).CorrelationID)
	failed := apptest.WaitFor[event.MessageFailed](t, alice)
	req.Equal("c-2", failed.CorrelationID)
	req.Equal("too many messages, slow down", failed.Error)
}

func TestConnect_Text_Is_Moderated(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)
	alice := h.Connect(t, "alice")

	alice.SendMessage(t, "bob", "<b>oh shit</b>", "c-1")

	req.Equal("oh ****", apptest.WaitFor[event.MessageSent](t, alice).Message.Text)
}

func TestConnect_Presence_Changes_Reach_Peers(t *testing.T) {
	req := require.New(t)
	h := apptest.New(t)
	alice := h.Connect(t, "alice")
	bob := h.Connect(t, "bob")

	// Given alice and bob already talked
	alice.SendMessage(t, "bob", "hi", "c-1")
	apptest.WaitFor[event.NewMessage](t, bob)

	// When bob leaves
	bob.Close()
	h.WaitOnline(t, "bob", false)
	req.Equal(event.UserStatus{UserID: "bob", Online: false}, apptest.WaitFor[event.UserStatus](t, alice))

	// And comes back
	bobAgain := h.Connect(t, "bob")
	req.Equal(event.UserStatus{UserID: "bob", Online: true}, apptest.WaitFor[event.UserStatus](t, alice))
	req.Equal(event.UserStatus{UserID: "alice", Online: true}, apptest.WaitFor[event.UserStatus](t, bobAgain))
}

func TestConnect_Reconnect_Supersedes_Silently(t *testing.T) {
	h := apptest.New(t)
	alice := h.Connect(t, "alice")
	bob := h.Connect(t, "bob")
	alice.SendMessage(t, "bob", "hi", "c-1")
	apptest.WaitFor[event.NewMessage](t, bob)

	// A second connection for bob replaces the first one, then the first one closes
	second := h.Dial(t, h.Token(t, "bob"))
	require.Eventually(t, func() bool { return h.Server.Gateway.Count() == 3 }, 2*time.Second, 5*time.Millisecond)
	bob.Close()
	require.Eventually(t, func() bool { return h.Server.Gateway.Count() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Alice never saw bob go offline and new messages reach the second connection
	apptest.Quiet[event.UserStatus](t, alice, 100*time.Millisecond)
	alice.SendMessage(t, "bob", "still there?", "c-2")
	require.Equal(t, "still there?", apptest.WaitFor[event.NewMessage](t, second).Text)
}
