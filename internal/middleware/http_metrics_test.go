package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/verify-access", "/verify-access"},
		{"/dashboard/stats", "/dashboard/stats"},
		{"/alerts/a1b2c3/read", "/alerts/{id}/read"},
		{"/alerts/a1b2c3", "/alerts/{id}"},
		{"/identities/a1b2c3", "/identities/{id}"},
		{"/identities/a1b2c3/photo-url", "/identities/{id}/photo-url"},
		{"/vehicles/ABC123", "/vehicles/{plate}"},
		{"/unknown/route", "/unknown/route"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// findMetricFamily gathers from the registry and returns the named family,
// or nil if absent.
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestHTTPMetrics_RecordsRequest(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("failed to register metrics: %v", err)
	}

	handler := HTTPMetrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"isValid":true}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/verify-access", strings.NewReader(`{"plate":"ABC123"}`))
	req.Header.Set("Content-Length", "18")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	family := findMetricFamily(t, reg, MetricHTTPRequestsTotal)
	if family == nil {
		t.Fatalf("metric family %s not found", MetricHTTPRequestsTotal)
	}
	if len(family.GetMetric()) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(family.GetMetric()))
	}

	m := family.GetMetric()[0]
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("counter = %v, want 1", got)
	}
	if got := labelValue(m, "method"); got != "POST" {
		t.Errorf("method label = %q, want POST", got)
	}
	if got := labelValue(m, "path"); got != "/verify-access" {
		t.Errorf("path label = %q, want /verify-access", got)
	}
	if got := labelValue(m, "status"); got != "200" {
		t.Errorf("status label = %q, want 200", got)
	}

	duration := findMetricFamily(t, reg, MetricHTTPRequestDuration)
	if duration == nil {
		t.Fatalf("metric family %s not found", MetricHTTPRequestDuration)
	}
	if got := duration.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("duration sample count = %d, want 1", got)
	}
}

func TestHTTPMetrics_NormalizesDynamicPaths(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("failed to register metrics: %v", err)
	}

	handler := HTTPMetrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/alerts/id-one/read", "/alerts/id-two/read"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, path, nil))
	}

	family := findMetricFamily(t, reg, MetricHTTPRequestsTotal)
	if family == nil {
		t.Fatalf("metric family %s not found", MetricHTTPRequestsTotal)
	}
	if len(family.GetMetric()) != 1 {
		t.Fatalf("expected both requests under one label set, got %d", len(family.GetMetric()))
	}
	m := family.GetMetric()[0]
	if got := labelValue(m, "path"); got != "/alerts/{id}/read" {
		t.Errorf("path label = %q, want /alerts/{id}/read", got)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("counter = %v, want 2", got)
	}
}

func TestHTTPMetrics_SkipsHealthEndpoints(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("failed to register metrics: %v", err)
	}

	handler := HTTPMetrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if family := findMetricFamily(t, reg, MetricHTTPRequestsTotal); family != nil {
		t.Errorf("expected no metrics for health endpoints, got %d series", len(family.GetMetric()))
	}
}
