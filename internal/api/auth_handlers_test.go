package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/campusgate/gatewatch/internal/auth"
)

func newAuthHandlers() *AuthHandlers {
	svc := auth.NewJWTService("test-secret-key-for-auth-tests")
	return NewAuthHandlers(svc, "security", "hunter2severe")
}

func TestLogin_Success(t *testing.T) {
	handlers := newAuthHandlers()

	w := postJSON(t, handlers.Login, "/auth/login", LoginRequest{
		Username: "security",
		Password: "hunter2severe",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.ExpiresIn != int(auth.SessionTokenExpiry.Seconds()) {
		t.Errorf("unexpected expires_in: %d", resp.ExpiresIn)
	}

	// Token must validate against the same service
	svc := auth.NewJWTService("test-secret-key-for-auth-tests")
	claims, err := svc.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	if claims.Subject != "security" {
		t.Errorf("expected subject 'security', got %s", claims.Subject)
	}
}

func TestLogin_WrongCredentials(t *testing.T) {
	handlers := newAuthHandlers()

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Username: "security", Password: "wrong"}},
		{"wrong username", LoginRequest{Username: "intruder", Password: "hunter2severe"}},
		{"empty", LoginRequest{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, handlers.Login, "/auth/login", tt.req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", w.Code)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if errResp.Error.Code != ErrCodeAuthFailed {
				t.Errorf("expected code %s, got %s", ErrCodeAuthFailed, errResp.Error.Code)
			}
		})
	}
}
