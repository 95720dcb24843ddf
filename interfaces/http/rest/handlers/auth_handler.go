package handlers

import (
	"encoding/json"
	"net/http"

	"studio-backend/pkg/auth"
	pkgerrors "studio-backend/pkg/errors"
)

// AuthHandler issues session tokens. In production an upstream identity
// provider replaces this; the endpoint exists for development and tests.
type AuthHandler struct {
	tokens  *auth.TokenService
	enabled bool
}

// NewAuthHandler creates an auth handler; enabled is false in production
func NewAuthHandler(tokens *auth.TokenService, enabled bool) *AuthHandler {
	return &AuthHandler{tokens: tokens, enabled: enabled}
}

type tokenRequest struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Workspace string `json:"workspace"`
}

// IssueToken handles POST /api/auth/token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		respondJSON(w, http.StatusForbidden, errorBody{
			Error: errorDetail{Code: "FORBIDDEN", Message: "token issuance is disabled"},
		})
		return
	}
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, pkgerrors.NewValidationError("", "userId is required"))
		return
	}
	token, err := h.tokens.IssueToken(req.UserID, req.Email, req.Workspace)
	if err != nil {
		respondError(w, pkgerrors.NewInternalError("failed to issue token", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}
