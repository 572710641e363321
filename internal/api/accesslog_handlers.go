package api

import (
	"net/http"
	"strconv"

	"github.com/campusgate/gatewatch/internal/accesslog"
	"github.com/campusgate/gatewatch/internal/middleware"
)

// AccessLogHandlers holds dependencies for access log HTTP handlers.
type AccessLogHandlers struct {
	repo accesslog.Repository
}

// NewAccessLogHandlers creates a new AccessLogHandlers instance.
func NewAccessLogHandlers(repo accesslog.Repository) *AccessLogHandlers {
	return &AccessLogHandlers{repo: repo}
}

// ListAccessLogs handles GET /access-logs?limit=N - returns recent entries,
// newest first.
func (h *AccessLogHandlers) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	entries, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to list access logs")
		return
	}
	if entries == nil {
		entries = []*accesslog.Entry{}
	}

	writeJSON(w, r.Context(), http.StatusOK, entries)
}

// DashboardStats handles GET /dashboard/stats - returns today's totals.
func (h *AccessLogHandlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.TodayStats(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to compute dashboard stats")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, stats)
}

// parseLimit reads the optional limit query parameter. A missing parameter
// yields 0, which repositories replace with their default. Writes a 400
// and returns ok=false on a malformed value.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
