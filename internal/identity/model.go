// Package identity provides models and repository for registered students and
// staff eligible for campus vehicle access.
package identity

import (
	"time"
)

// Identity represents a registered student or staff member.
type Identity struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"` // campus ID as encoded in the badge barcode
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Year       int       `json:"year,omitempty"`
	Contact    string    `json:"contact,omitempty"`
	PhotoKey   *string   `json:"photo_key,omitempty"` // object key in the photo bucket
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
