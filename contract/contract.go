//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"skillxchange/domain"
	"skillxchange/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// PresenceReader answers which connection is authoritative for a user.
type PresenceReader interface {
	Lookup(userID string) (string, bool)
	Online() int
}

// Pusher queues an event on an open connection without blocking.
type Pusher interface {
	Push(connectionID string, e event.Event) error
}

// Audience lists the users interested in the presence of userID.
type Audience interface {
	Peers(userID string) ([]string, error)
}

// PresenceNotifier hands a presence change over to the broadcaster.
type PresenceNotifier interface {
	Notify(status event.UserStatus)
}

// NotifierFunc lets a plain function act as a PresenceNotifier.
type NotifierFunc func(status event.UserStatus)

func (f NotifierFunc) Notify(status event.UserStatus) {
	f(status)
}

type TextFilter interface {
	Filter(senderID, text string) (string, error)
}

type Indexer interface {
	Index(message domain.Message) error
	Search(ctx context.Context, viewerID, counterpartID, terms string, limit int) ([]uuid.UUID, error)
}
