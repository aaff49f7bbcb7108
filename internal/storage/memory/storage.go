package memory

import (
	"context"
	"sync"

	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Scores do not survive a restart; intended for tests and throwaway runs.
type Storage struct {
	mu      sync.RWMutex
	entries []model.Entry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) GetLeaderboard(ctx context.Context) ([]model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.Entry, len(s.entries))
	copy(entries, s.entries)
	return entries, nil
}

func (s *Storage) SaveLeaderboard(ctx context.Context, entries []model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]model.Entry, len(entries))
	copy(s.entries, entries)
	return nil
}
