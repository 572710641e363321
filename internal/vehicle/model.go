// Package vehicle provides models and repository for registered vehicles.
package vehicle

import (
	"time"
)

// Vehicle classes accepted at campus gates.
const (
	ClassCar        = "car"
	ClassMotorcycle = "motorcycle"
	ClassBicycle    = "bicycle"
)

// Vehicle represents a registered plate associated with exactly one identity.
type Vehicle struct {
	ID         string    `json:"id"`
	Plate      string    `json:"plate"`
	IdentityID string    `json:"identity_id"` // owning identity's internal UUID
	Class      string    `json:"class"`
	Model      *string   `json:"model,omitempty"`
	Color      *string   `json:"color,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
