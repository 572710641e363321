package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/middleware"
	"github.com/campusgate/gatewatch/internal/vehicle"
)

// CreateVehicleRequest represents the request body for registering a vehicle.
type CreateVehicleRequest struct {
	Plate      string  `json:"plate"`
	IdentityID string  `json:"identity_id"`
	Class      string  `json:"class"`
	Model      *string `json:"model,omitempty"`
	Color      *string `json:"color,omitempty"`
}

// VehicleHandlers holds dependencies for vehicle HTTP handlers.
type VehicleHandlers struct {
	repo       vehicle.Repository
	identities identity.Repository
}

// NewVehicleHandlers creates a new VehicleHandlers instance.
func NewVehicleHandlers(repo vehicle.Repository, identities identity.Repository) *VehicleHandlers {
	return &VehicleHandlers{repo: repo, identities: identities}
}

func validVehicleClass(class string) bool {
	switch class {
	case vehicle.ClassCar, vehicle.ClassMotorcycle, vehicle.ClassBicycle:
		return true
	}
	return false
}

// CreateVehicle handles POST /vehicles - registers a vehicle to an identity.
func (h *VehicleHandlers) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req CreateVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	// Plate is stored as entered: matching at the gate is exact and
	// case-sensitive, so no normalization happens here either.
	if req.Plate == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "plate is required")
		return
	}
	if strings.TrimSpace(req.IdentityID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "identity_id is required")
		return
	}
	if !validVehicleClass(req.Class) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "class must be 'car', 'motorcycle', or 'bicycle'")
		return
	}

	owner, err := h.identities.GetByID(r.Context(), req.IdentityID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to resolve owning identity")
		return
	}
	if owner == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Owning identity not found")
		return
	}

	v := &vehicle.Vehicle{
		Plate:      req.Plate,
		IdentityID: owner.ID,
		Class:      req.Class,
		Model:      req.Model,
		Color:      req.Color,
		Active:     true,
	}
	if err := h.repo.Insert(r.Context(), v); err != nil {
		if err == vehicle.ErrDuplicatePlate {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeConflict)
			WriteError(w, ctx, http.StatusConflict, ErrCodeConflict, "A vehicle with this plate already exists")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to create vehicle")
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, v)
}

// ListVehicles handles GET /vehicles - returns all vehicles.
func (h *VehicleHandlers) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.repo.List(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to list vehicles")
		return
	}
	if vehicles == nil {
		vehicles = []*vehicle.Vehicle{}
	}

	writeJSON(w, r.Context(), http.StatusOK, vehicles)
}

// GetVehicle handles GET /vehicles/{plate}.
func (h *VehicleHandlers) GetVehicle(w http.ResponseWriter, r *http.Request) {
	plate, ok := platePathParam(w, r)
	if !ok {
		return
	}

	v, err := h.repo.GetByPlate(r.Context(), plate)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to get vehicle")
		return
	}
	if v == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Vehicle not found")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, v)
}

// DeleteVehicle handles DELETE /vehicles/{plate}.
func (h *VehicleHandlers) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	plate, ok := platePathParam(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), plate); err != nil {
		if err == vehicle.ErrVehicleNotFound {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Vehicle not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePersistenceUnavailable)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodePersistenceUnavailable, "Failed to delete vehicle")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, map[string]any{"success": true})
}

// platePathParam extracts the plate from /vehicles/{plate} paths.
func platePathParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/vehicles/"), "/")
	if len(pathParts) != 1 || pathParts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid URL path")
		return "", false
	}
	return pathParts[0], true
}
