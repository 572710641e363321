package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/middleware"
	"github.com/campusgate/gatewatch/internal/photo"
)

// PhotoUploadRequest represents the request body for a badge-photo
// upload URL.
type PhotoUploadRequest struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// PhotoHandlers holds dependencies for badge-photo HTTP handlers.
type PhotoHandlers struct {
	identities identity.Repository
	photos     *photo.Service
}

// NewPhotoHandlers creates a new PhotoHandlers instance.
func NewPhotoHandlers(identities identity.Repository, photos *photo.Service) *PhotoHandlers {
	return &PhotoHandlers{identities: identities, photos: photos}
}

// RequestUploadURL handles POST /identities/{id}/photo-url - returns a
// pre-signed PUT URL for uploading the identity's badge photo directly
// to object storage.
func (h *PhotoHandlers) RequestUploadURL(w http.ResponseWriter, r *http.Request) {
	// Expected: /identities/{id}/photo-url
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/identities/"), "/")
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] != "photo-url" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid URL path")
		return
	}
	identityID := pathParts[0]

	var req PhotoUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	ident, err := h.identities.GetByID(r.Context(), identityID)
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

	signed, err := h.photos.GenerateSignedURL(r.Context(), photo.SignedURLRequest{
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		IdentityID:  ident.ID,
	})
	if err != nil {
		switch err {
		case photo.ErrUnsupportedType:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType, "Content type must be image/jpeg or image/png")
		case photo.ErrFileTooLarge:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "File size exceeds the maximum allowed")
		default:
			slog.ErrorContext(r.Context(), "failed to generate signed upload url", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate upload URL")
		}
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, signed)
}
