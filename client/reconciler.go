// Package client keeps a local view of the conversations of one user
// consistent with what the server stored.
package client

import (
	"slices"
	"sync"
	"time"

	"skillxchange/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Entry is one line of the open conversation. A pending entry is an
// optimistic placeholder still waiting for the server outcome.
type Entry struct {
	CorrelationID string
	Message       domain.Message
	Pending       bool
}

// Reconciler renders outgoing messages before the server confirmed them and
// reconciles them once it did. It is safe for concurrent use.
type Reconciler struct {
	mu       sync.Mutex
	selfID   string
	activeID string
	visible  []Entry
	unread   map[string]int

	newCorrelationID func() string
	now              func() time.Time
}

func NewReconciler(selfID string) *Reconciler {
	return &Reconciler{
		selfID:           selfID,
		unread:           make(map[string]int),
		newCorrelationID: uuid.NewString,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Open makes counterpartID the active conversation, showing history, and
// resets its unread counter. Placeholders of the previous conversation are
// dropped from the view, their outcome still arrives through OnConfirmed or OnFailed.
func (r *Reconciler) Open(counterpartID string, history []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeID = counterpartID
	r.visible = lo.Map(history, func(m domain.Message, _ int) Entry { return Entry{Message: m} })
	delete(r.unread, counterpartID)
}

// Active returns the counterpart of the open conversation, empty if none.
func (r *Reconciler) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// SendOptimistic appends a placeholder for text to the open conversation and
// returns its correlation id with the receiver it was addressed to. Without an
// open conversation it does nothing and returns empty values.
func (r *Reconciler) SendOptimistic(text string) (correlationID, receiverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == "" {
		return "", ""
	}
	correlationID = r.newCorrelationID()
	r.visible = appendOptimistic(r.visible, Entry{
		CorrelationID: correlationID,
		Pending:       true,
		Message: domain.Message{
			SenderID:   r.selfID,
			ReceiverID: r.activeID,
			Text:       text,
			CreatedAt:  r.now(),
			Status:     domain.StatusSent,
		},
	})
	return correlationID, r.activeID
}

// OnConfirmed swaps the placeholder for the stored message, in place.
// Without a placeholder the message is appended to the open conversation.
func (r *Reconciler) OnConfirmed(correlationID string, message domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.Counterpart(r.selfID) != r.activeID {
		r.visible = applyFailed(r.visible, correlationID)
		return
	}
	r.visible = applyConfirmed(r.visible, correlationID, message)
}

// OnFailed removes the placeholder.
func (r *Reconciler) OnFailed(correlationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = applyFailed(r.visible, correlationID)
}

// OnPush shows a received message when it belongs to the open conversation,
// otherwise counts it as unread for its sender.
func (r *Reconciler) OnPush(message domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ReceiverID != r.selfID {
		return
	}
	if message.SenderID != r.activeID {
		r.unread[message.SenderID]++
		return
	}
	r.visible = applyPush(r.visible, message)
}

// OnMessagesRead marks what the user sent to readerID as read.
func (r *Reconciler) OnMessagesRead(readerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if readerID != r.activeID {
		return
	}
	r.visible = applyRead(r.visible, r.selfID)
}

// FailPending rolls back every placeholder, for instance when the connection
// is lost, and returns their correlation ids.
func (r *Reconciler) FailPending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.pendingLocked()
	for _, correlationID := range pending {
		r.visible = applyFailed(r.visible, correlationID)
	}
	return pending
}

// Pending returns the correlation ids still waiting for an outcome.
func (r *Reconciler) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingLocked()
}

func (r *Reconciler) pendingLocked() []string {
	return lo.FilterMap(r.visible, func(e Entry, _ int) (string, bool) {
		return e.CorrelationID, e.Pending
	})
}

// Visible returns a copy of the open conversation.
func (r *Reconciler) Visible() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.visible)
}

// Unread returns the number of messages received from counterpartID while
// its conversation was not open.
func (r *Reconciler) Unread(counterpartID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread[counterpartID]
}

// SetUnread seeds a counter from the conversation summaries.
func (r *Reconciler) SetUnread(counterpartID string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if counterpartID == r.activeID {
		return
	}
	r.unread[counterpartID] = count
}

// The functions below never mutate their input.

func appendOptimistic(visible []Entry, entry Entry) []Entry {
	next := slices.DeleteFunc(slices.Clone(visible), func(e Entry) bool {
		return e.CorrelationID == entry.CorrelationID
	})
	return append(next, entry)
}

func applyConfirmed(visible []Entry, correlationID string, message domain.Message) []Entry {
	next := slices.Clone(visible)
	if correlationID != "" && slices.ContainsFunc(next, func(e Entry) bool {
		return !e.Pending && e.Message.ID == message.ID
	}) {
		// Already shown, only the placeholder has to go
		return applyFailed(next, correlationID)
	}
	i := slices.IndexFunc(next, func(e Entry) bool {
		return correlationID != "" && e.Pending && e.CorrelationID == correlationID
	})
	if i < 0 {
		if slices.ContainsFunc(next, func(e Entry) bool { return e.Message.ID == message.ID }) {
			return next
		}
		return append(next, Entry{CorrelationID: correlationID, Message: message})
	}
	next[i] = Entry{CorrelationID: correlationID, Message: message}
	return next
}

func applyFailed(visible []Entry, correlationID string) []Entry {
	if correlationID == "" {
		return visible
	}
	return slices.DeleteFunc(slices.Clone(visible), func(e Entry) bool {
		return e.Pending && e.CorrelationID == correlationID
	})
}

func applyPush(visible []Entry, message domain.Message) []Entry {
	if slices.ContainsFunc(visible, func(e Entry) bool { return e.Message.ID == message.ID }) {
		return visible
	}
	return append(slices.Clone(visible), Entry{Message: message})
}

func applyRead(visible []Entry, selfID string) []Entry {
	return lo.Map(visible, func(e Entry, _ int) Entry {
		if !e.Pending && e.Message.SenderID == selfID && e.Message.Status.CanAdvanceTo(domain.StatusRead) {
			e.Message.Status = domain.StatusRead
		}
		return e
	})
}
