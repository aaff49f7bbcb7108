package catalog

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/quentin-drucker/snaphunt/internal/dependencies/random"
	"github.com/quentin-drucker/snaphunt/internal/model"
)

// defaultItems is the builtin item pool, used when no catalog file is
// configured. Labels are matched against classifier tags, so they need to
// be things the vision service reliably detects.
var defaultItems = []model.Item{
	{ID: 2, Label: "Pen", Hint: "You write with it, not type."},
	{ID: 3, Label: "Scissors", Hint: "Careful! Don't run with it!"},
	{ID: 4, Label: "Notebook", Hint: "Lines, pages, and notes."},
	{ID: 6, Label: "Paper Clip", Hint: "It keeps your papers together."},
}

// Service holds the static item pool and selects round targets from it
type Service struct {
	random random.Random

	mu    sync.RWMutex
	items []model.Item
}

// New creates a catalog service seeded with the builtin item pool
func New(rnd random.Random) *Service {
	items := make([]model.Item, len(defaultItems))
	copy(items, defaultItems)
	return &Service{
		random: rnd,
		items:  items,
	}
}

// LoadFromFile replaces the item pool with the contents of a JSON file
// (an array of {id, label, hint} objects)
func (s *Service) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		return model.ErrEmptyCatalog
	}

	return s.LoadItems(items)
}

// LoadItems directly replaces the item pool (useful for testing)
func (s *Service) LoadItems(items []model.Item) error {
	if len(items) == 0 {
		return model.ErrEmptyCatalog
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]model.Item, len(items))
	copy(s.items, items)
	return nil
}

// RandomItem selects an item uniformly at random. Selection is independent
// of previous rounds; repeats are allowed, and a single-item catalog will
// repeat every round.
func (s *Service) RandomItem() (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.items) == 0 {
		return model.Item{}, model.ErrEmptyCatalog
	}
	return s.items[s.random.Intn(len(s.items))], nil
}

// Items returns a copy of the current item pool
func (s *Service) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, len(s.items))
	copy(items, s.items)
	return items
}

// ItemCount returns the number of items in the pool
func (s *Service) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
