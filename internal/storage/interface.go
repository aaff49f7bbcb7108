package storage

import (
	"context"

	"github.com/quentin-drucker/snaphunt/internal/model"
)

// Storage defines the interface for leaderboard persistence.
// The board is a single durable record: loaded in full at startup and
// overwritten in full on every score change. Entry order is preserved
// so score ties display in arrival order.
type Storage interface {
	GetLeaderboard(ctx context.Context) ([]model.Entry, error)
	SaveLeaderboard(ctx context.Context, entries []model.Entry) error
}
