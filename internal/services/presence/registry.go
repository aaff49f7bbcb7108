package presence

import (
	"sort"
	"sync"
)

// Registry tracks which username each live connection belongs to.
// A username may be behind several connections at once (duplicate tabs);
// presence counts deduplicate by username for display and for the skip-vote
// denominator. The registry only maintains the mapping - broadcasting after
// a change is the coordinator's job.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]string // connection ID -> username
}

// New creates an empty presence registry
func New() *Registry {
	return &Registry{
		connections: make(map[string]string),
	}
}

// Register records the username behind a connection. Re-registering the
// same connection is an upsert.
func (r *Registry) Register(connID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[connID] = username
}

// Unregister removes a connection's mapping on disconnect. Unknown
// connections are a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, connID)
}

// Username returns the username registered for a connection, or "" if the
// connection never registered.
func (r *Registry) Username(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections[connID]
}

// DistinctUsernames returns the deduplicated set of online usernames,
// sorted for deterministic display.
func (r *Registry) DistinctUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.connections))
	var users []string
	for _, username := range r.connections {
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}
		users = append(users, username)
	}
	sort.Strings(users)
	return users
}

// OnlineCount returns the number of distinct online usernames
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.connections))
	for _, username := range r.connections {
		seen[username] = struct{}{}
	}
	return len(seen)
}

// IsOnline reports whether any live connection belongs to the username
func (r *Registry) IsOnline(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.connections {
		if u == username {
			return true
		}
	}
	return false
}
