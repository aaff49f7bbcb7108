package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quentin-drucker/snaphunt/internal/api/apierr"
	"github.com/quentin-drucker/snaphunt/internal/api/handler"
	"github.com/quentin-drucker/snaphunt/internal/api/middleware"
	"github.com/quentin-drucker/snaphunt/internal/services/auth"
	"github.com/quentin-drucker/snaphunt/internal/services/leaderboard"
	"github.com/quentin-drucker/snaphunt/internal/services/round"
	"github.com/quentin-drucker/snaphunt/internal/ws"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Coordinator *round.Coordinator
	Leaderboard *leaderboard.Service
	Hub         *ws.Hub
	UploadDir   string
}

// NewRouter creates the HTTP router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	gameHandler := handler.NewGameHandler(cfg.Coordinator, cfg.Leaderboard)
	uploadHandler := handler.NewUploadHandler(cfg.Coordinator, cfg.UploadDir, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// REST API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/current-item", gameHandler.CurrentItem).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", gameHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/upload", uploadHandler.Upload).Methods(http.MethodPost)
	api.HandleFunc("/health", gameHandler.Health).Methods(http.MethodGet)

	// Real-time channel
	r.HandleFunc("/ws", cfg.Hub.ServeWS).Methods(http.MethodGet)

	return r
}
