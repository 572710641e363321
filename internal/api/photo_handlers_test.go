package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/photo"
)

func newPhotoFixture(t *testing.T) (*PhotoHandlers, *identity.InMemoryRepository) {
	t.Helper()
	svc, err := photo.NewService(photo.ServiceConfig{
		BucketName:      "gatewatch-photos",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		Endpoint:        "https://storage.test.example",
	})
	if err != nil {
		t.Fatalf("failed to create photo service: %v", err)
	}
	identities := identity.NewInMemoryRepository()
	return NewPhotoHandlers(identities, svc), identities
}

func seedPhotoIdentity(t *testing.T, identities *identity.InMemoryRepository) *identity.Identity {
	t.Helper()
	ident := &identity.Identity{
		ExternalID: "S100",
		Name:       "Alice Nguyen",
		Active:     true,
	}
	if err := identities.Insert(context.Background(), ident); err != nil {
		t.Fatalf("failed to seed identity: %v", err)
	}
	return ident
}

func TestRequestUploadURL(t *testing.T) {
	handlers, identities := newPhotoFixture(t)
	ident := seedPhotoIdentity(t, identities)

	rec := postJSON(t, http.HandlerFunc(handlers.RequestUploadURL),
		"/identities/"+ident.ID+"/photo-url",
		PhotoUploadRequest{ContentType: "image/jpeg", SizeBytes: 1024})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp photo.SignedURLResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.URL == "" {
		t.Error("expected non-empty signed URL")
	}
	if !strings.HasPrefix(resp.Key, "identities/"+ident.ID+"/") {
		t.Errorf("key = %q, want identities/%s/ prefix", resp.Key, ident.ID)
	}
	if !strings.HasSuffix(resp.Key, ".jpg") {
		t.Errorf("key = %q, want .jpg suffix", resp.Key)
	}
}

func TestRequestUploadURL_UnknownIdentity(t *testing.T) {
	handlers, _ := newPhotoFixture(t)

	rec := postJSON(t, http.HandlerFunc(handlers.RequestUploadURL),
		"/identities/no-such-id/photo-url",
		PhotoUploadRequest{ContentType: "image/jpeg", SizeBytes: 1024})

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRequestUploadURL_UnsupportedContentType(t *testing.T) {
	handlers, identities := newPhotoFixture(t)
	ident := seedPhotoIdentity(t, identities)

	rec := postJSON(t, http.HandlerFunc(handlers.RequestUploadURL),
		"/identities/"+ident.ID+"/photo-url",
		PhotoUploadRequest{ContentType: "application/pdf", SizeBytes: 1024})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), ErrCodeUnsupportedType) {
		t.Errorf("expected %s error, got %s", ErrCodeUnsupportedType, rec.Body.String())
	}
}

func TestRequestUploadURL_FileTooLarge(t *testing.T) {
	handlers, identities := newPhotoFixture(t)
	ident := seedPhotoIdentity(t, identities)

	rec := postJSON(t, http.HandlerFunc(handlers.RequestUploadURL),
		"/identities/"+ident.ID+"/photo-url",
		PhotoUploadRequest{ContentType: "image/png", SizeBytes: 100 * 1024 * 1024})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), ErrCodeValidation) {
		t.Errorf("expected %s error, got %s", ErrCodeValidation, rec.Body.String())
	}
}

func TestRequestUploadURL_InvalidPath(t *testing.T) {
	handlers, _ := newPhotoFixture(t)

	rec := postJSON(t, http.HandlerFunc(handlers.RequestUploadURL),
		"/identities//photo-url",
		PhotoUploadRequest{ContentType: "image/jpeg", SizeBytes: 1024})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
