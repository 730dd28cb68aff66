package chat

import (
	"sync"

	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
)

// Entry is one user's live presence: the socket currently tracked for
// targeted delivery plus a snapshot of their public identity taken at
// connect time.
type Entry struct {
	SocketID string
	User     models.PublicProfile
}

// Registry is the process-wide presence table, keyed by user ID. All access
// goes through the mutex; entries live only as long as the process.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register inserts or overwrites the entry for userID. A reconnect simply
// supersedes the previous socket for lookup purposes; the old connection
// keeps receiving room traffic until it actually closes.
func (r *Registry) Register(userID, socketID string, user models.PublicProfile) {
	r.mu.Lock()
	r.entries[userID] = Entry{SocketID: socketID, User: user}
	r.mu.Unlock()
}

// Unregister removes the entry for userID. No-op if absent, so duplicate
// disconnect signals are harmless.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
}

// Drop removes the entry only if socketID still owns it. This keeps a late
// disconnect from a superseded connection from evicting the entry its
// replacement just registered. Returns true when an entry was removed.
func (r *Registry) Drop(userID, socketID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[userID]
	if !ok || entry.SocketID != socketID {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Find returns the presence entry for userID.
func (r *Registry) Find(userID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[userID]
	return entry, ok
}

// OnlineIDs returns the IDs of all currently tracked users.
func (r *Registry) OnlineIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Clear wipes all entries. Used on shutdown and in tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.entries = make(map[string]Entry)
	r.mu.Unlock()
}
