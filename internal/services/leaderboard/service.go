package leaderboard

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/storage"
)

// Service owns the leaderboard: an in-memory authoritative copy loaded
// from storage at startup, written through in full on every increment.
//
// The coordinator calls Increment only from the post-win path, which is
// serialized by the round's active-flag flip, so there is a single writer.
// The internal mutex still guards against concurrent readers.
//
// On a write failure the increment is retried once; if that also fails the
// in-memory score is kept and the failure is logged. A won round is never
// silently un-won because the disk was unhappy.
type Service struct {
	storage storage.Storage
	logger  *slog.Logger

	mu      sync.RWMutex
	entries []model.Entry
}

// New creates a leaderboard service, loading persisted scores.
// A load failure starts the board empty rather than failing the boot;
// the error is returned so the caller can log it.
func New(ctx context.Context, store storage.Storage, logger *slog.Logger) (*Service, error) {
	s := &Service{
		storage: store,
		logger:  logger.With(slog.String("component", "leaderboard")),
	}

	entries, err := store.GetLeaderboard(ctx)
	if err != nil {
		s.logger.Error("failed to load leaderboard, starting empty",
			slog.String("error", err.Error()))
		return s, err
	}
	s.entries = entries
	return s, nil
}

// Increment adds one to the username's score, creating the entry at score 1
// if the username has never won before, and returns the updated full board.
func (s *Service) Increment(ctx context.Context, username string) []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.entries {
		if s.entries[i].Username == username {
			s.entries[i].Score++
			found = true
			break
		}
	}
	if !found {
		s.entries = append(s.entries, model.Entry{Username: username, Score: 1})
	}

	snapshot := make([]model.Entry, len(s.entries))
	copy(snapshot, s.entries)

	if err := s.storage.SaveLeaderboard(ctx, snapshot); err != nil {
		s.logger.Warn("leaderboard write failed, retrying",
			slog.String("username", username),
			slog.String("error", err.Error()))
		if err := s.storage.SaveLeaderboard(ctx, snapshot); err != nil {
			s.logger.Error("leaderboard write failed after retry, keeping in-memory score",
				slog.String("username", username),
				slog.String("error", err.Error()))
		}
	}

	return sortedCopy(snapshot)
}

// ReadSorted returns the board sorted by score descending. The sort is
// stable so score ties display in the order entries first appeared.
func (s *Service) ReadSorted() []model.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]model.Entry, len(s.entries))
	copy(snapshot, s.entries)
	return sortedCopy(snapshot)
}

// Score returns the current score for a username, 0 if absent
func (s *Service) Score(username string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.Username == username {
			return e.Score
		}
	}
	return 0
}

func sortedCopy(entries []model.Entry) []model.Entry {
	sorted := make([]model.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}
