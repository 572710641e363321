package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusgate/gatewatch/internal/identity"
)

func TestCreateIdentity_Success(t *testing.T) {
	repo := identity.NewInMemoryRepository()
	handlers := NewIdentityHandlers(repo)

	w := postJSON(t, handlers.CreateIdentity, "/identities", CreateIdentityRequest{
		ExternalID: "S100",
		Name:       "Alice Nguyen",
		Department: "CS",
		Year:       3,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created identity.Identity
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if !created.Active {
		t.Error("expected new identity to be active")
	}
	if created.ExternalID != "S100" {
		t.Errorf("expected external_id S100, got %s", created.ExternalID)
	}
}

func TestCreateIdentity_MissingFields(t *testing.T) {
	handlers := NewIdentityHandlers(identity.NewInMemoryRepository())

	tests := []struct {
		name string
		req  CreateIdentityRequest
	}{
		{"missing external_id", CreateIdentityRequest{Name: "Alice"}},
		{"missing name", CreateIdentityRequest{ExternalID: "S100"}},
		{"whitespace external_id", CreateIdentityRequest{ExternalID: "   ", Name: "Alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, handlers.CreateIdentity, "/identities", tt.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestCreateIdentity_Duplicate(t *testing.T) {
	repo := identity.NewInMemoryRepository()
	handlers := NewIdentityHandlers(repo)

	req := CreateIdentityRequest{ExternalID: "S100", Name: "Alice Nguyen"}
	if w := postJSON(t, handlers.CreateIdentity, "/identities", req); w.Code != http.StatusCreated {
		t.Fatalf("first create failed: %d", w.Code)
	}

	w := postJSON(t, handlers.CreateIdentity, "/identities", req)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
}

func TestGetIdentity(t *testing.T) {
	repo := identity.NewInMemoryRepository()
	handlers := NewIdentityHandlers(repo)
	ctx := context.Background()

	ident := &identity.Identity{ExternalID: "S100", Name: "Alice Nguyen", Active: true}
	if err := repo.Insert(ctx, ident); err != nil {
		t.Fatalf("seed identity: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/identities/"+ident.ID, nil)
	w := httptest.NewRecorder()
	handlers.GetIdentity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var got identity.Identity
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != ident.ID {
		t.Errorf("expected identity %s, got %s", ident.ID, got.ID)
	}
}

func TestGetIdentity_NotFound(t *testing.T) {
	handlers := NewIdentityHandlers(identity.NewInMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, "/identities/nonexistent", nil)
	w := httptest.NewRecorder()
	handlers.GetIdentity(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestUpdateIdentity_PartialUpdate(t *testing.T) {
	repo := identity.NewInMemoryRepository()
	handlers := NewIdentityHandlers(repo)
	ctx := context.Background()

	ident := &identity.Identity{ExternalID: "S100", Name: "Alice Nguyen", Department: "CS", Active: true}
	if err := repo.Insert(ctx, ident); err != nil {
		t.Fatalf("seed identity: %v", err)
	}

	newDept := "EE"
	body, _ := json.Marshal(UpdateIdentityRequest{Department: &newDept})
	req := httptest.NewRequest(http.MethodPut, "/identities/"+ident.ID, bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.UpdateIdentity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated identity.Identity
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Department != "EE" {
		t.Errorf("expected department EE, got %s", updated.Department)
	}
	if updated.Name != "Alice Nguyen" {
		t.Errorf("expected untouched name, got %s", updated.Name)
	}
}

func TestDeactivateIdentity(t *testing.T) {
	repo := identity.NewInMemoryRepository()
	handlers := NewIdentityHandlers(repo)
	ctx := context.Background()

	ident := &identity.Identity{ExternalID: "S100", Name: "Alice Nguyen", Active: true}
	if err := repo.Insert(ctx, ident); err != nil {
		t.Fatalf("seed identity: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/identities/"+ident.ID, nil)
	w := httptest.NewRecorder()
	handlers.DeactivateIdentity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	// Record still resolvable, just inactive
	got, err := repo.GetByID(ctx, ident.ID)
	if err != nil || got == nil {
		t.Fatalf("expected record to survive deactivation: %v", err)
	}
	if got.Active {
		t.Error("expected identity to be inactive")
	}
}
