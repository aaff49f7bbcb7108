package handler

import (
	"net/http"

	"github.com/quentin-drucker/snaphunt/internal/api/response"
	"github.com/quentin-drucker/snaphunt/internal/services/leaderboard"
	"github.com/quentin-drucker/snaphunt/internal/services/round"
)

// GameHandler serves round and leaderboard state to clients
type GameHandler struct {
	coordinator *round.Coordinator
	leaderboard *leaderboard.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(coordinator *round.Coordinator, board *leaderboard.Service) *GameHandler {
	return &GameHandler{
		coordinator: coordinator,
		leaderboard: board,
	}
}

// CurrentItem handles GET /api/current-item. Newly-connecting clients use
// it to sync round state before websocket events arrive.
func (h *GameHandler) CurrentItem(w http.ResponseWriter, r *http.Request) {
	snapshot := h.coordinator.CurrentRound()
	response.JSON(w, http.StatusOK, response.CurrentItemFromRound(snapshot))
}

// Leaderboard handles GET /api/leaderboard
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.leaderboard.ReadSorted())
}

// Health handles GET /api/health
func (h *GameHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
