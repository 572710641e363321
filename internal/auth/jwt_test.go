package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateSessionToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateSessionToken("security")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "security" {
		t.Errorf("subject = %q, want %q", claims.Subject, "security")
	}
	if claims.Role != StaffRole {
		t.Errorf("role = %q, want %q", claims.Role, StaffRole)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining > SessionTokenExpiry || remaining < SessionTokenExpiry-time.Minute {
		t.Errorf("expiry %v from now, want about %v", remaining, SessionTokenExpiry)
	}
}

func TestGenerateSessionToken_EmptySubject(t *testing.T) {
	svc := NewJWTService("test-secret")

	_, err := svc.GenerateSessionToken("")
	if !errors.Is(err, ErrEmptySubject) {
		t.Errorf("expected ErrEmptySubject, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-one").GenerateSessionToken("security")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	_, err = NewJWTService("secret-two").ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret")

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestValidateToken_Expired(t *testing.T) {
	// Negative leeway shifts the validation clock forward past the
	// token's eight-hour expiry.
	svc := NewJWTServiceWithLeeway("test-secret", -(SessionTokenExpiry + time.Hour))

	token, err := svc.GenerateSessionToken("security")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	_, err = svc.ValidateToken(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}
