package runtime

import (
	"sync"
)

// Registry maps a user to the connection currently authoritative for them.
// At most one entry per user: a newer connection supersedes the previous one.
// The map is never exposed, every access goes through the methods below.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]string // map userID -> connectionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]string),
	}
}

// SetOnline makes connectionID the authoritative connection of userID.
// It returns true when the user was offline before the call.
func (r *Registry) SetOnline(userID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, wasOnline := r.sessions[userID]
	r.sessions[userID] = connectionID
	return !wasOnline
}

// ClearIfMatches removes the entry of userID only if it still points to
// connectionID. A late close of a superseded connection leaves the newer
// entry in place and returns false.
func (r *Registry) ClearIfMatches(userID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current != connectionID {
		return false
	}
	delete(r.sessions, userID)
	return true
}

func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectionID, ok := r.sessions[userID]
	return connectionID, ok
}

// Online returns the number of users currently present.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
