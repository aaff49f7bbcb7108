package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/quentin-drucker/snaphunt/internal/catalog"
	"github.com/quentin-drucker/snaphunt/internal/dependencies/random"
	"github.com/quentin-drucker/snaphunt/internal/services/auth"
	"github.com/quentin-drucker/snaphunt/internal/services/leaderboard"
	"github.com/quentin-drucker/snaphunt/internal/services/presence"
	"github.com/quentin-drucker/snaphunt/internal/services/round"
	"github.com/quentin-drucker/snaphunt/internal/services/vision"
	"github.com/quentin-drucker/snaphunt/internal/services/votes"
	"github.com/quentin-drucker/snaphunt/internal/storage"
	filestorage "github.com/quentin-drucker/snaphunt/internal/storage/file"
	"github.com/quentin-drucker/snaphunt/internal/storage/memory"
	redisstorage "github.com/quentin-drucker/snaphunt/internal/storage/redis"
	"github.com/quentin-drucker/snaphunt/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeFile   = "file"
	StorageTypeRedis  = "redis"
)

// DefaultLeaderboardPath is where file storage writes when not configured
const DefaultLeaderboardPath = "leaderboard.json"

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clockwork.Clock
	Random random.Random

	// Services
	Catalog     *catalog.Service
	Leaderboard *leaderboard.Service
	Presence    *presence.Registry
	Votes       *votes.Tracker
	AuthService *auth.Service
	Vision      *vision.Gateway
	Coordinator *round.Coordinator
	Hub         *ws.Hub
}

// Config holds configuration for the application factory
type Config struct {
	// Logger for all components; a no-op logger is used when nil
	Logger *slog.Logger
	// StorageType is one of "memory", "file" (default), "redis"
	StorageType string
	// LeaderboardPath is the file storage location (file storage only)
	LeaderboardPath string
	// RedisConfig holds Redis connection settings (required for redis storage)
	RedisConfig *redisstorage.Config
	// ItemsPath optionally replaces the builtin item catalog
	ItemsPath string
	// AuthConfig holds the shared login secret
	AuthConfig auth.Config
	// VisionConfig holds classification-service settings; empty
	// credentials degrade the gateway to always-no-match
	VisionConfig vision.Config
	// RoundConfig holds round pacing; zero values take defaults
	RoundConfig round.Config
}

// New creates a new application with all dependencies wired. The first
// round is not started; call App.Coordinator.Start once the server is up.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeFile
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeFile:
		path := cfg.LeaderboardPath
		if path == "" {
			path = DefaultLeaderboardPath
		}
		store = filestorage.New(path)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'file' or 'redis'")
	}

	// Create external dependencies
	clk := clockwork.NewRealClock()
	rnd := random.New()

	return newWithDependencies(cfg, store, clk, rnd, logger)
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg Config, store storage.Storage, clk clockwork.Clock, rnd random.Random, logger *slog.Logger) (*App, error) {
	cat := catalog.New(rnd)
	if cfg.ItemsPath != "" {
		if err := cat.LoadFromFile(cfg.ItemsPath); err != nil {
			return nil, err
		}
	}

	board, err := leaderboard.New(context.Background(), store, logger)
	if err != nil {
		// The service starts with an empty board; losing old scores is
		// preferable to refusing to boot.
		logger.Warn("continuing with empty leaderboard", slog.String("error", err.Error()))
	}

	reg := presence.New()
	tracker := votes.New()
	authService := auth.New(cfg.AuthConfig)
	gateway := vision.New(cfg.VisionConfig, logger)

	hub := ws.NewHub(logger)
	coordinator := round.NewCoordinator(cat, board, reg, tracker, gateway, hub, clk, cfg.RoundConfig, logger)
	hub.AttachSession(coordinator)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Catalog:     cat,
		Leaderboard: board,
		Presence:    reg,
		Votes:       tracker,
		AuthService: authService,
		Vision:      gateway,
		Coordinator: coordinator,
		Hub:         hub,
	}, nil
}
