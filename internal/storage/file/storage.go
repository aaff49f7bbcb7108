package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/storage"
)

// Storage persists the leaderboard as a JSON array in a single flat file.
// A missing file reads as an empty board. Writes go through a temp file and
// rename so a crash mid-write cannot leave a truncated board behind.
type Storage struct {
	mu   sync.Mutex
	path string
}

// New creates a file storage instance writing to the given path
func New(path string) *Storage {
	return &Storage{path: path}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) GetLeaderboard(ctx context.Context) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []model.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Storage) SaveLeaderboard(ctx context.Context, entries []model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entries == nil {
		entries = []model.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".leaderboard-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path)
}
