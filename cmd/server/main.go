package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quentin-drucker/snaphunt/internal/api"
	"github.com/quentin-drucker/snaphunt/internal/factory"
	"github.com/quentin-drucker/snaphunt/internal/services/auth"
	"github.com/quentin-drucker/snaphunt/internal/services/vision"
	redisstorage "github.com/quentin-drucker/snaphunt/internal/storage/redis"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env if present; real environment wins
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	// Build factory config from environment
	cfg := factory.Config{
		Logger:          logger,
		StorageType:     os.Getenv("STORAGE_TYPE"),
		LeaderboardPath: os.Getenv("LEADERBOARD_PATH"),
		ItemsPath:       os.Getenv("ITEMS_PATH"),
		AuthConfig: auth.Config{
			Password:     os.Getenv("APP_PASSWORD"),
			PasswordHash: os.Getenv("APP_PASSWORD_HASH"),
		},
		VisionConfig: vision.Config{
			Endpoint: os.Getenv("AZURE_VISION_ENDPOINT"),
			Key:      os.Getenv("AZURE_VISION_KEY"),
		},
	}

	if cfg.AuthConfig.Password == "" && cfg.AuthConfig.PasswordHash == "" {
		logger.Warn("no APP_PASSWORD configured, all logins will be rejected")
	}
	if cfg.VisionConfig.Endpoint == "" || cfg.VisionConfig.Key == "" {
		logger.Warn("vision service not configured, all submissions will be no-matches")
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Coordinator: app.Coordinator,
		Leaderboard: app.Leaderboard,
		Hub:         app.Hub,
		UploadDir:   os.Getenv("UPLOAD_DIR"),
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("invalid PORT", slog.String("port", port))
			os.Exit(1)
		}
		serverConfig.Port = p
	}
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start the broadcast hub, then the first round
	go app.Hub.Run()
	app.Coordinator.Start()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		app.Coordinator.Stop()
		app.Hub.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
