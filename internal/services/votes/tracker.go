package votes

import "sync"

// Tracker is the per-round set of usernames who voted to skip the current
// item. It is reset exclusively by the round coordinator when a new round
// starts; no other component mutates it directly.
type Tracker struct {
	mu    sync.RWMutex
	voted map[string]struct{}
}

// New creates an empty vote tracker
func New() *Tracker {
	return &Tracker{
		voted: make(map[string]struct{}),
	}
}

// Add records a skip vote for the username. Votes are idempotent: a repeat
// vote has no effect. Returns true if this was the user's first vote this
// round.
func (t *Tracker) Add(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.voted[username]; ok {
		return false
	}
	t.voted[username] = struct{}{}
	return true
}

// Has reports whether the username has voted this round
func (t *Tracker) Has(username string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.voted[username]
	return ok
}

// Size returns the number of votes this round
func (t *Tracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.voted)
}

// Clear resets the tracker for a new round
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voted = make(map[string]struct{})
}

// Prune drops votes from usernames no longer online, keeping the vote
// count bounded by the online-user count as players churn.
func (t *Tracker) Prune(online []string) {
	onlineSet := make(map[string]struct{}, len(online))
	for _, u := range online {
		onlineSet[u] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for username := range t.voted {
		if _, ok := onlineSet[username]; !ok {
			delete(t.voted, username)
		}
	}
}
