// Package accesslog provides the append-only record of gate access attempts.
package accesslog

import (
	"time"

	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/vehicle"
)

// Access statuses.
const (
	StatusGranted = "granted"
	StatusDenied  = "denied"
)

// Entry represents one access attempt and its outcome. Entries are immutable
// once created; corrections happen through new entries, never edits.
type Entry struct {
	ID         string         `json:"id"`
	IdentityID *string        `json:"identity_id"` // nil when the scanned identity did not resolve
	VehicleID  *string        `json:"vehicle_id"`  // nil when the plate did not resolve
	Plate      string         `json:"plate"`       // raw plate string as scanned, kept even on miss
	Gate       string         `json:"gate"`
	Status     string         `json:"status"` // "granted" or "denied"
	Reason     *string        `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	// Joined records for display; populated on read and broadcast,
	// not part of the stored row
	Identity *identity.Identity `json:"identity,omitempty"`
	Vehicle  *vehicle.Vehicle   `json:"vehicle,omitempty"`
}

// Stats summarizes today's access activity for the dashboard.
type Stats struct {
	TotalAccess int `json:"totalAccess"`
	Granted     int `json:"granted"`
	Denied      int `json:"denied"`
	ActiveGates int `json:"activeGates"`
}
