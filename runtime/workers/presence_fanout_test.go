package workers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"skillxchange/domain/event"
	"skillxchange/errors"
	"skillxchange/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fanoutMocks struct {
	audience *mocks.MockAudience
	presence *mocks.MockPresenceReader
	pusher   *mocks.MockPusher
	metrics  *mocks.MockMetricsCollector
}

func newFanout(t *testing.T, bufferSize int) (*PresenceFanout, fanoutMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := fanoutMocks{
		audience: mocks.NewMockAudience(ctrl),
		presence: mocks.NewMockPresenceReader(ctrl),
		pusher:   mocks.NewMockPusher(ctrl),
		metrics:  mocks.NewMockMetricsCollector(ctrl),
	}
	fanout := NewPresenceFanout(logs.GetLoggerFromLevel(slog.LevelError), bufferSize,
		m.audience, m.presence, m.pusher, m.metrics)
	return fanout, m
}

func TestPresenceFanout_Online_Reaches_Online_Peers(t *testing.T) {
	fanout, m := newFanout(t, 8)

	// Given alice talked with bob (online) and carol (offline)
	m.presence.EXPECT().Online().Return(2)
	m.metrics.EXPECT().SetOnlineUsers(2)
	m.audience.EXPECT().Peers("alice").Return([]string{"bob", "carol"}, nil)
	m.presence.EXPECT().Lookup("alice").Return("conn-alice", true)
	m.presence.EXPECT().Lookup("bob").Return("conn-bob", true)
	m.presence.EXPECT().Lookup("carol").Return("", false)

	// Then bob learns alice is online and alice learns bob is online
	m.pusher.EXPECT().Push("conn-bob", event.UserStatus{UserID: "alice", Online: true})
	m.pusher.EXPECT().Push("conn-alice", event.UserStatus{UserID: "bob", Online: true})

	fanout.Fanout(event.UserStatus{UserID: "alice", Online: true})
}

func TestPresenceFanout_Offline_Sends_No_Snapshot(t *testing.T) {
	fanout, m := newFanout(t, 8)

	m.presence.EXPECT().Online().Return(1)
	m.metrics.EXPECT().SetOnlineUsers(1)
	m.audience.EXPECT().Peers("alice").Return([]string{"bob"}, nil)
	m.presence.EXPECT().Lookup("bob").Return("conn-bob", true)
	m.pusher.EXPECT().Push("conn-bob", event.UserStatus{UserID: "alice", Online: false})

	fanout.Fanout(event.UserStatus{UserID: "alice", Online: false})
}

func TestPresenceFanout_Refused_Push_Is_Counted(t *testing.T) {
	fanout, m := newFanout(t, 8)

	m.presence.EXPECT().Online().Return(1)
	m.metrics.EXPECT().SetOnlineUsers(1)
	m.audience.EXPECT().Peers("alice").Return([]string{"bob"}, nil)
	m.presence.EXPECT().Lookup("bob").Return("conn-bob", true)
	m.pusher.EXPECT().Push("conn-bob", gomock.Any()).Return(errors.ErrSlowConsumer)
	m.metrics.EXPECT().RecordPushDropped(string(event.UserStatusName))

	fanout.Fanout(event.UserStatus{UserID: "alice", Online: false})
}

func TestPresenceFanout_Audience_Failure(t *testing.T) {
	fanout, m := newFanout(t, 8)

	m.presence.EXPECT().Online().Return(0)
	m.metrics.EXPECT().SetOnlineUsers(0)
	m.audience.EXPECT().Peers("alice").Return(nil, fmt.Errorf("disk on fire"))

	// No push expected
	fanout.Fanout(event.UserStatus{UserID: "alice", Online: false})
}

func TestPresenceFanout_Notify_Drops_When_Full(t *testing.T) {
	fanout, m := newFanout(t, 1)

	m.metrics.EXPECT().RecordPushDropped(string(event.UserStatusName)).Times(1)

	fanout.Notify(event.UserStatus{UserID: "alice", Online: true})
	fanout.Notify(event.UserStatus{UserID: "alice", Online: false})
}

func TestPresenceFanout_Run_Keeps_Order(t *testing.T) {
	req := require.New(t)
	fanout, m := newFanout(t, 8)

	m.presence.EXPECT().Online().Return(1).AnyTimes()
	m.metrics.EXPECT().SetOnlineUsers(gomock.Any()).AnyTimes()
	m.audience.EXPECT().Peers("alice").Return([]string{"bob"}, nil).Times(2)
	m.presence.EXPECT().Lookup("alice").Return("", false)
	m.presence.EXPECT().Lookup("bob").Return("conn-bob", true).Times(2)

	pushed := make(chan event.Event, 2)
	m.pusher.EXPECT().Push("conn-bob", gomock.Any()).
		DoAndReturn(func(_ string, e event.Event) error {
			pushed <- e
			return nil
		}).Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	fanout.Notify(event.UserStatus{UserID: "alice", Online: true})
	fanout.Notify(event.UserStatus{UserID: "alice", Online: false})

	for _, want := range []event.Event{
		event.UserStatus{UserID: "alice", Online: true},
		event.UserStatus{UserID: "alice", Online: false},
	} {
		select {
		case got := <-pushed:
			req.Equal(want, got)
		case <-time.After(time.Second):
			req.Fail("presence change not broadcast")
		}
	}

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("fanout should stop with its context")
	}
}
