// Package alert provides security alerts raised on denied or suspicious
// gate activity, surfaced on the dashboard until acknowledged.
package alert

import "time"

// Alert categories.
const (
	CategoryUnauthorizedAccess = "unauthorized_access"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert represents a security alert shown on the dashboard.
type Alert struct {
	ID          string         `json:"id"`
	Category    string         `json:"category"`
	Severity    string         `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Gate        *string        `json:"gate,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Read        bool           `json:"read"`
	CreatedAt   time.Time      `json:"created_at"`
}
