package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quentin-drucker/snaphunt/internal/api/apierr"
	"github.com/quentin-drucker/snaphunt/internal/api/request"
	"github.com/quentin-drucker/snaphunt/internal/api/response"
	"github.com/quentin-drucker/snaphunt/internal/services/auth"
)

// AuthHandler handles the shared-password login endpoint
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}

	if err := h.authService.Check(req.Password); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LoginResponse{Username: req.Username})
}
