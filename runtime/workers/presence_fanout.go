package workers

import (
	"context"
	"log/slog"

	"skillxchange/contract"
	"skillxchange/domain/event"
	"skillxchange/observability"
)

// PresenceFanout broadcasts presence changes to the online peers of a user.
//
// Changes are handled one at a time in the order they were notified, so the
// online and offline transitions of a user reach a peer in the order they happened.
// Delivery is best effort: a peer whose connection refuses the event misses it.
type PresenceFanout struct {
	log      *slog.Logger
	statuses chan event.UserStatus
	audience contract.Audience
	presence contract.PresenceReader
	pusher   contract.Pusher
	metrics  observability.MetricsCollector
}

func NewPresenceFanout(log *slog.Logger, bufferSize int,
	audience contract.Audience, presence contract.PresenceReader,
	pusher contract.Pusher, metrics observability.MetricsCollector) *PresenceFanout {
	return &PresenceFanout{
		log:      log,
		statuses: make(chan event.UserStatus, bufferSize),
		audience: audience,
		presence: presence,
		pusher:   pusher,
		metrics:  metrics,
	}
}

// Notify never blocks the caller. A full queue drops the change.
func (w *PresenceFanout) Notify(status event.UserStatus) {
	select {
	case w.statuses <- status:
	default:
		w.log.Warn("Presence queue full, dropping status", "user_id", status.UserID, "online", status.Online)
		w.metrics.RecordPushDropped(string(event.UserStatusName))
	}
}

func (w *PresenceFanout) Run(ctx context.Context) error {
	for {
		select {
		case status := <-w.statuses:
			w.Fanout(status)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping presence fanout")
			return nil
		}
	}
}

// Fanout pushes the status to every online peer. When the user came online,
// it also receives the status of its peers already online.
func (w *PresenceFanout) Fanout(status event.UserStatus) {
	w.metrics.SetOnlineUsers(w.presence.Online())

	peers, err := w.audience.Peers(status.UserID)
	if err != nil {
		w.log.Error("Unable to resolve presence audience", "user_id", status.UserID, "error", err)
		return
	}

	ownConnection, ownOnline := "", false
	if status.Online {
		ownConnection, ownOnline = w.presence.Lookup(status.UserID)
	}

	for _, peer := range peers {
		connectionID, ok := w.presence.Lookup(peer)
		if !ok {
			continue
		}
		w.push(connectionID, status)
		if ownOnline {
			w.push(ownConnection, event.UserStatus{UserID: peer, Online: true})
		}
	}
}

func (w *PresenceFanout) push(connectionID string, status event.UserStatus) {
	if err := w.pusher.Push(connectionID, status); err != nil {
		w.log.Debug("Presence push refused", "connection_id", connectionID, "error", err)
		w.metrics.RecordPushDropped(string(event.UserStatusName))
	}
}
