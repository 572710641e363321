package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got == "" {
		t.Fatal("expected request ID in context")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("request ID %q is not a UUID: %v", got, err)
	}
	if header := rec.Header().Get(RequestIDHeader); header != got {
		t.Errorf("response header = %q, want %q", header, got)
	}
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "station-42-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got != "station-42-abc" {
		t.Errorf("request ID = %q, want %q", got, "station-42-abc")
	}
	if header := rec.Header().Get(RequestIDHeader); header != "station-42-abc" {
		t.Errorf("response header = %q, want %q", header, "station-42-abc")
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on empty context = %q, want empty", got)
	}
}
