package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/middleware"
)

// CreateIdentityRequest represents the request body for registering an identity.
type CreateIdentityRequest struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Year       int    `json:"year,omitempty"`
	Contact    string `json:"contact,omitempty"`
}

// UpdateIdentityRequest represents the request body for updating an identity.
// Only includes mutable fields.
type UpdateIdentityRequest struct {
	ExternalID *string `json:"external_id,omitempty"`
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
	Year       *int    `json:"year,omitempty"`
	Contact    *string `json:"contact,omitempty"`
	PhotoKey   *string `json:"photo_key,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// IdentityHandlers holds dependencies for identity HTTP handlers.
type IdentityHandlers struct {
	repo identity.Repository
}

// NewIdentityHandlers creates a new IdentityHandlers instance.
func NewIdentityHandlers(repo identity.Repository) *IdentityHandlers {
	return &IdentityHandlers{repo: repo}
}

// CreateIdentity handles POST /identities - registers a new identity.
func (h *IdentityHandlers) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	var req CreateIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.ExternalID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "external_id is required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "name is required")
		return
	}

	ident := &identity.Identity{
		ExternalID: strings.TrimSpace(req.ExternalID),
		Name:       strings.TrimSpace(req.Name),
		Department: req.Department,
		Year:       req.Year,
		Contact:    req.Contact,
		Active:     true,
	}
	if err := h.repo.Insert(r.Context(), ident); err != nil {
		if err == identity.ErrDuplicateExternalID {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "An identity with this external ID already exists")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to create identity")
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, ident)
}

// ListIdentities handles GET /identities - returns all identities.
func (h *IdentityHandlers) ListIdentities(w http.ResponseWriter, r *http.Request) {
	identities, err := h.repo.List(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to list identities")
		return
	}
	if identities == nil {
		identities = []*identity.Identity{}
	}

	writeJSON(w, r.Context(), http.StatusOK, identities)
}

// GetIdentity handles GET /identities/{id}.
func (h *IdentityHandlers) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := identityIDFromPath(w, r)
	if !ok {
		return
	}

	ident, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to get identity")
		return
	}
	if ident == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Identity not found")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, ident)
}

// UpdateIdentity handles PUT /identities/{id} - applies partial updates.
func (h *IdentityHandlers) UpdateIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := identityIDFromPath(w, r)
	if !ok {
		return
	}

	var req UpdateIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	ident, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to get identity")
		return
	}
	if ident == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Identity not found")
		return
	}

	if req.ExternalID != nil {
		if strings.TrimSpace(*req.ExternalID) == "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "external_id must not be empty")
			return
		}
		ident.ExternalID = strings.TrimSpace(*req.ExternalID)
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "name must not be empty")
			return
		}
		ident.Name = strings.TrimSpace(*req.Name)
	}
	if req.Department != nil {
		ident.Department = *req.Department
	}
	if req.Year != nil {
		ident.Year = *req.Year
	}
	if req.Contact != nil {
		ident.Contact = *req.Contact
	}
	if req.PhotoKey != nil {
		ident.PhotoKey = req.PhotoKey
	}
	if req.Active != nil {
		ident.Active = *req.Active
	}

	if err := h.repo.Update(r.Context(), ident); err != nil {
		switch err {
		case identity.ErrIdentityNotFound:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Identity not found")
		case identity.ErrDuplicateExternalID:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "An identity with this external ID already exists")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to update identity")
		}
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, ident)
}

// DeactivateIdentity handles DELETE /identities/{id}. Records are
// deactivated, never hard-deleted: access logs keep referencing them.
func (h *IdentityHandlers) DeactivateIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := identityIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.repo.Deactivate(r.Context(), id); err != nil {
		if err == identity.ErrIdentityNotFound {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Identity not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to deactivate identity")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, map[string]any{"success": true})
}

// identityIDFromPath extracts the identity ID from /identities/{id} paths.
func identityIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/identities/"), "/")
	if len(pathParts) != 1 || pathParts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid URL path")
		return "", false
	}
	return pathParts[0], true
}
