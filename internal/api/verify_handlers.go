// Package api provides HTTP handlers for the gate access API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusgate/gatewatch/internal/middleware"
	"github.com/campusgate/gatewatch/internal/verify"
)

// VerifyAccessRequest represents the request body for automatic verification.
type VerifyAccessRequest struct {
	StudentID string `json:"student_id"`
	Plate     string `json:"plate"`
	Gate      string `json:"gate"`
}

// ManualAccessRequest represents the request body for manual grant/deny.
// StudentID may be empty for deny: security staff can turn away a vehicle
// without a badge scan.
type ManualAccessRequest struct {
	StudentID string `json:"student_id"`
	Plate     string `json:"plate"`
	Gate      string `json:"gate"`
	Reason    string `json:"reason,omitempty"`
}

// VerifyHandlers holds dependencies for verification HTTP handlers.
type VerifyHandlers struct {
	verifier *verify.Verifier
}

// NewVerifyHandlers creates a new VerifyHandlers instance.
func NewVerifyHandlers(verifier *verify.Verifier) *VerifyHandlers {
	return &VerifyHandlers{verifier: verifier}
}

// VerifyAccess handles POST /verify-access - runs the automatic
// verification pipeline. A denial is a 200 response with isValid=false;
// only missing inputs or store failures produce an error status.
func (h *VerifyHandlers) VerifyAccess(w http.ResponseWriter, r *http.Request) {
	var req VerifyAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	result, err := h.verifier.Verify(r.Context(), req.StudentID, req.Plate, req.Gate)
	if err != nil {
		writeVerifyError(w, r, err)
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, result)
}

// GrantAccess handles POST /grant-access - records a manual grant.
func (h *VerifyHandlers) GrantAccess(w http.ResponseWriter, r *http.Request) {
	var req ManualAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	entry, err := h.verifier.GrantManually(r.Context(), req.StudentID, req.Plate, req.Gate)
	if err != nil {
		writeVerifyError(w, r, err)
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, map[string]any{
		"success":   true,
		"accessLog": entry,
	})
}

// DenyAccess handles POST /deny-access - records a manual deny and the
// alert that always accompanies it.
func (h *VerifyHandlers) DenyAccess(w http.ResponseWriter, r *http.Request) {
	var req ManualAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	entry, created, err := h.verifier.DenyManually(r.Context(), req.StudentID, req.Plate, req.Gate, req.Reason)
	if err != nil {
		writeVerifyError(w, r, err)
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, map[string]any{
		"success":   true,
		"accessLog": entry,
		"alert":     created,
	})
}

// writeVerifyError maps verifier sentinel errors onto HTTP responses.
func writeVerifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, verify.ErrInvalidRequest):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, verify.ErrStoreUnavailable):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to record access attempt")
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}
