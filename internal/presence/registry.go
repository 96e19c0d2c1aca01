// Package presence tracks which users currently have a live, addressable
// connection. The in-memory registry is the single authority the relay
// consults; a Redis mirror of the same facts exists for other services but is
// never read on the relay path.
package presence

import (
	"sort"
	"sync"
)

// Handle is an addressable live connection. The WebSocket layer's connection
// type satisfies it; tests use in-memory fakes.
type Handle interface {
	// Key uniquely identifies this connection (not the user) for the
	// lifetime of the process.
	Key() string
	// WriteMessage sends one event frame to the connected client.
	WriteMessage(data []byte) error
}

// Registry maps user IDs to their most recent live connection handle. At most
// one handle is retained per user; a re-registration after reconnect simply
// overwrites the stale mapping. Reads from the server's frame workers run
// concurrently, so all access is mutex-guarded.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Handle // userID -> most recent handle
	owner  map[string]string // handle key -> userID owning it
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Handle),
		owner:  make(map[string]string),
	}
}

// Register inserts or overwrites the mapping for userID. Last write wins:
// after a reconnect the previous handle becomes orphaned and its eventual
// disconnect cleanup leaves the fresh mapping untouched. It is idempotent and
// cannot fail. The return reports whether the user was already online.
func (r *Registry) Register(userID string, h Handle) (wasOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		wasOnline = true
		delete(r.owner, prev.Key())
	}
	r.byUser[userID] = h
	r.owner[h.Key()] = userID
	return wasOnline
}

// Lookup resolves a userID to its live handle. A missing user is the normal
// offline steady state, not an error.
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	h, ok := r.byUser[userID]
	r.mu.RUnlock()
	return h, ok
}

// Remove drops the mapping owned by the given handle, keyed by handle
// identity rather than user ID. A late disconnect of a superseded handle must
// not evict the newer registration for the same user. It returns the user ID
// that went offline, or "" if this handle owned no current mapping.
func (r *Registry) Remove(h Handle) (userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := h.Key()
	userID, ok := r.owner[key]
	if !ok {
		return ""
	}
	delete(r.owner, key)
	delete(r.byUser, userID)
	return userID
}

// Snapshot returns the sorted set of currently registered user IDs.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		users = append(users, id)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Handles returns all currently registered handles, for presence broadcasts.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.byUser))
	for _, h := range r.byUser {
		handles = append(handles, h)
	}
	r.mu.RUnlock()
	return handles
}

// Count returns the number of users currently online.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.byUser)
	r.mu.RUnlock()
	return n
}
