package api

import (
	"net/http"
	"strings"

	"github.com/campusgate/gatewatch/internal/alert"
	"github.com/campusgate/gatewatch/internal/middleware"
)

// AlertHandlers holds dependencies for alert HTTP handlers.
type AlertHandlers struct {
	repo alert.Repository
}

// NewAlertHandlers creates a new AlertHandlers instance.
func NewAlertHandlers(repo alert.Repository) *AlertHandlers {
	return &AlertHandlers{repo: repo}
}

// ListAlerts handles GET /alerts?limit=N - returns recent alerts, newest first.
func (h *AlertHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	alerts, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*alert.Alert{}
	}

	writeJSON(w, r.Context(), http.StatusOK, alerts)
}

// MarkAlertRead handles PUT /alerts/{id}/read - acknowledges an alert.
func (h *AlertHandlers) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	// Extract alert ID from URL path
	// Expected: /alerts/{id}/read
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/alerts/"), "/")
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] != "read" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid URL path")
		return
	}
	alertID := pathParts[0]

	if err := h.repo.MarkRead(r.Context(), alertID); err != nil {
		if err == alert.ErrAlertNotFound {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Alert not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to mark alert read")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, map[string]any{"success": true})
}
