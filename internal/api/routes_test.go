package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusgate/gatewatch/internal/accesslog"
	"github.com/campusgate/gatewatch/internal/alert"
	"github.com/campusgate/gatewatch/internal/auth"
	"github.com/campusgate/gatewatch/internal/broadcast"
	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/vehicle"
	"github.com/campusgate/gatewatch/internal/verify"
)

const testJWTSecret = "router-test-secret"

// newTestRouter wires the full route table over in-memory stores seeded
// with identity S100 owning vehicle ABC123.
func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	ctx := context.Background()

	identities := identity.NewInMemoryRepository()
	vehicles := vehicle.NewInMemoryRepository()
	logs := accesslog.NewInMemoryRepository()
	alerts := alert.NewInMemoryRepository()

	if err := identities.Insert(ctx, &identity.Identity{
		ID: "ident-1", ExternalID: "S100", Name: "Alice Nguyen", Active: true,
	}); err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	if err := vehicles.Insert(ctx, &vehicle.Vehicle{
		ID: "veh-1", Plate: "ABC123", IdentityID: "ident-1", Class: vehicle.ClassCar, Active: true,
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}

	jwtService := auth.NewJWTService(testJWTSecret)
	broadcaster := broadcast.NewEventBroadcaster(nil, nil)
	verifier := verify.NewVerifier(identities, vehicles, logs, alerts, broadcaster, nil, nil)

	return NewRouter(RouterConfig{
		Verify:       NewVerifyHandlers(verifier),
		AccessLogs:   NewAccessLogHandlers(logs),
		Alerts:       NewAlertHandlers(alerts),
		Identities:   NewIdentityHandlers(identities),
		Vehicles:     NewVehicleHandlers(vehicles, identities),
		Auth:         NewAuthHandlers(jwtService, "security", "secret"),
		WS:           NewWSHandlers(broadcaster, nil),
		Health:       NewHealthHandlers(HealthHandlersConfig{}),
		RequireStaff: auth.RequireStaff(jwtService),
	})
}

func staffToken(t *testing.T) string {
	t.Helper()
	token, err := auth.NewJWTService(testJWTSecret).GenerateSessionToken("security")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func TestRouter_VerifyAccess(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(VerifyAccessRequest{StudentID: "S100", Plate: "ABC123", Gate: "Gate1"})
	req := httptest.NewRequest(http.MethodPost, "/verify-access", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result verify.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.IsValid {
		t.Error("expected valid result")
	}
}

func TestRouter_VerifyAccessWrongMethod(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/verify-access", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestRouter_AdminRoutesRequireStaffToken(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/grant-access"},
		{http.MethodPost, "/deny-access"},
		{http.MethodGet, "/identities"},
		{http.MethodPost, "/identities"},
		{http.MethodGet, "/vehicles"},
		{http.MethodDelete, "/vehicles/ABC123"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, bytes.NewReader([]byte("{}")))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401 without token, got %d", w.Code)
			}
		})
	}
}

func TestRouter_StaffTokenGrantsAccess(t *testing.T) {
	router := newTestRouter(t)
	token := staffToken(t)

	req := httptest.NewRequest(http.MethodGet, "/identities", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_ManualDenyEndToEnd(t *testing.T) {
	router := newTestRouter(t)
	token := staffToken(t)

	body, _ := json.Marshal(ManualAccessRequest{Plate: "ABC123", Gate: "Gate1", Reason: "Suspicious"})
	req := httptest.NewRequest(http.MethodPost, "/deny-access", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// The alert is visible on the unauthenticated dashboard listing
	req = httptest.NewRequest(http.MethodGet, "/alerts", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var alerts []*alert.Alert
	if err := json.NewDecoder(w.Body).Decode(&alerts); err != nil {
		t.Fatalf("failed to decode alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Errorf("expected 1 alert after manual deny, got %d", len(alerts))
	}
}

func TestRouter_PhotoURLWithoutStorageConfigured(t *testing.T) {
	router := newTestRouter(t)
	token := staffToken(t)

	body, _ := json.Marshal(PhotoUploadRequest{ContentType: "image/jpeg", SizeBytes: 1024})
	req := httptest.NewRequest(http.MethodPost, "/identities/ident-1/photo-url", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 when photo storage is unconfigured, got %d", w.Code)
	}
}

func TestRouter_UnknownPath(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, errResp.Error.Code)
	}
}

func TestRouter_Root(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var info map[string]string
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if info["service"] != "gatewatch-api" {
		t.Errorf("unexpected service name: %s", info["service"])
	}
}
