package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/campusgate/gatewatch/internal/auth"
	"github.com/campusgate/gatewatch/internal/middleware"
)

// LoginRequest represents the request body for staff login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token for authenticated staff.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// AuthHandlers holds dependencies for authentication HTTP handlers.
type AuthHandlers struct {
	jwtService *auth.JWTService
	username   string
	password   string
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(jwtService *auth.JWTService, username, password string) *AuthHandlers {
	return &AuthHandlers{
		jwtService: jwtService,
		username:   username,
		password:   password,
	}
}

// Login handles POST /auth/login - exchanges staff credentials for a
// session token.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	// Constant-time comparison to avoid leaking credential length/content
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) == 1
	if !userOK || !passOK {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid username or password")
		return
	}

	token, err := h.jwtService.GenerateSessionToken(req.Username)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to generate session token", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate session token")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int(auth.SessionTokenExpiry.Seconds()),
	})
}
