// Package verify implements the gate access verification pipeline: decide
// whether a scanned identity/plate pair may enter, record the attempt,
// raise an alert on denial, and fan the results out to connected dashboards.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusgate/gatewatch/internal/accesslog"
	"github.com/campusgate/gatewatch/internal/alert"
	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/vehicle"
)

// Sentinel errors for the verification entry points.
var (
	// ErrInvalidRequest indicates a missing required input. It is detected
	// before any lookup or write happens.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStoreUnavailable indicates a lookup or write against the backing
	// store failed. A denial is NOT an error; only infrastructure failures
	// surface this.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Denial reasons. The check order in Decide is authoritative: only the
// first failing check determines the reason.
const (
	ReasonIdentityNotFound     = "Identity not found"
	ReasonVehicleNotRegistered = "Vehicle not registered"
	ReasonVehicleMismatch      = "Vehicle does not belong to this identity"
	ReasonInactive             = "Identity or vehicle is inactive"
)

// Event types delivered to connected observers.
const (
	EventAccessLog     = "access_log"
	EventAccessGranted = "access_granted"
	EventAccessDenied  = "access_denied"
	EventNewAlert      = "new_alert"
)

// DefaultManualDenyReason is used when a manual deny carries no reason.
const DefaultManualDenyReason = "Denied by security staff"

// Broadcaster delivers events to all connected observers. Delivery is
// fire-and-forget; implementations never return errors to the verifier.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Verdict is the outcome of one verification decision.
type Verdict struct {
	Valid bool
	// Reason is empty when Valid is true.
	Reason string
}

// Result is the full outcome of a verification call, returned to the
// caller and mirrored in the access log.
type Result struct {
	Identity  *identity.Identity `json:"identity"`
	Vehicle   *vehicle.Vehicle   `json:"vehicle"`
	IsValid   bool               `json:"isValid"`
	Reason    *string            `json:"reason,omitempty"`
	AccessLog *accesslog.Entry   `json:"accessLog"`
}

// Decide computes the verdict for a resolved identity/vehicle pair.
// It is pure: no lookups, no writes. Checks run in order and
// short-circuit; the first failure fixes the reason.
func Decide(ident *identity.Identity, veh *vehicle.Vehicle) Verdict {
	if ident == nil {
		return Verdict{Valid: false, Reason: ReasonIdentityNotFound}
	}
	if veh == nil {
		return Verdict{Valid: false, Reason: ReasonVehicleNotRegistered}
	}
	if veh.IdentityID != ident.ID {
		return Verdict{Valid: false, Reason: ReasonVehicleMismatch}
	}
	if !ident.Active || !veh.Active {
		return Verdict{Valid: false, Reason: ReasonInactive}
	}
	return Verdict{Valid: true}
}

// Verifier runs verifications and applies their side effects.
type Verifier struct {
	identities  identity.Repository
	vehicles    vehicle.Repository
	logs        accesslog.Repository
	alerts      alert.Repository
	broadcaster Broadcaster
	metrics     *Metrics
	logger      *slog.Logger
}

// NewVerifier creates a Verifier. metrics may be nil to disable
// instrumentation (tests).
func NewVerifier(
	identities identity.Repository,
	vehicles vehicle.Repository,
	logs accesslog.Repository,
	alerts alert.Repository,
	broadcaster Broadcaster,
	metrics *Metrics,
	logger *slog.Logger,
) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		identities:  identities,
		vehicles:    vehicles,
		logs:        logs,
		alerts:      alerts,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
	}
}

// Verify runs the automatic verification pipeline for a scanned
// identity/plate pair at a gate. Denial is a normal outcome; an error is
// returned only for missing inputs or store failures.
func (v *Verifier) Verify(ctx context.Context, identityToken, plateToken, gate string) (*Result, error) {
	if identityToken == "" {
		return nil, fmt.Errorf("%w: identity token is required", ErrInvalidRequest)
	}
	if plateToken == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidRequest)
	}
	if gate == "" {
		return nil, fmt.Errorf("%w: gate is required", ErrInvalidRequest)
	}

	ident, veh, err := v.resolve(ctx, identityToken, plateToken)
	if err != nil {
		return nil, err
	}

	verdict := Decide(ident, veh)

	entry, err := v.writeLog(ctx, ident, veh, plateToken, gate, verdict, map[string]any{"confidence": 100})
	if err != nil {
		return nil, err
	}

	var created *alert.Alert
	if !verdict.Valid {
		created, err = v.writeDenialAlert(ctx, identityToken, plateToken, gate, verdict.Reason)
		if err != nil {
			// The log entry stands; the two writes are best-effort,
			// not atomic.
			return nil, err
		}
	}

	if v.metrics != nil {
		v.metrics.IncVerification(entry.Status)
	}

	v.broadcaster.Broadcast(EventAccessLog, entry)
	if created != nil {
		v.broadcaster.Broadcast(EventNewAlert, created)
	}

	result := &Result{
		Identity:  ident,
		Vehicle:   veh,
		IsValid:   verdict.Valid,
		AccessLog: entry,
	}
	if verdict.Reason != "" {
		reason := verdict.Reason
		result.Reason = &reason
	}
	return result, nil
}

// GrantManually records a grant decided by security staff, bypassing the
// verification checks. Identity and vehicle resolve best-effort; a miss
// does not block the grant. No alert is created.
func (v *Verifier) GrantManually(ctx context.Context, identityToken, plateToken, gate string) (*accesslog.Entry, error) {
	if plateToken == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidRequest)
	}
	if gate == "" {
		return nil, fmt.Errorf("%w: gate is required", ErrInvalidRequest)
	}

	ident, veh, err := v.resolve(ctx, identityToken, plateToken)
	if err != nil {
		return nil, err
	}

	entry, err := v.writeLog(ctx, ident, veh, plateToken, gate, Verdict{Valid: true}, map[string]any{"manual": true})
	if err != nil {
		return nil, err
	}

	if v.metrics != nil {
		v.metrics.IncManualOverride("grant")
	}

	v.broadcaster.Broadcast(EventAccessGranted, entry)
	return entry, nil
}

// DenyManually records a deny decided by security staff. An alert is
// always created: a human explicitly denied entry, whatever the cause.
func (v *Verifier) DenyManually(ctx context.Context, identityToken, plateToken, gate, reason string) (*accesslog.Entry, *alert.Alert, error) {
	if plateToken == "" {
		return nil, nil, fmt.Errorf("%w: plate is required", ErrInvalidRequest)
	}
	if gate == "" {
		return nil, nil, fmt.Errorf("%w: gate is required", ErrInvalidRequest)
	}
	if reason == "" {
		reason = DefaultManualDenyReason
	}

	ident, veh, err := v.resolve(ctx, identityToken, plateToken)
	if err != nil {
		return nil, nil, err
	}

	entry, err := v.writeLog(ctx, ident, veh, plateToken, gate, Verdict{Valid: false, Reason: reason}, map[string]any{"manual": true})
	if err != nil {
		return nil, nil, err
	}

	created, err := v.writeDenialAlert(ctx, identityToken, plateToken, gate, reason)
	if err != nil {
		return nil, nil, err
	}

	if v.metrics != nil {
		v.metrics.IncManualOverride("deny")
	}

	v.broadcaster.Broadcast(EventAccessDenied, entry)
	v.broadcaster.Broadcast(EventNewAlert, created)
	return entry, created, nil
}

// resolve looks up the identity and vehicle records. The vehicle lookup
// runs even when the identity misses, so denied log entries still carry
// the vehicle reference. Misses come back nil without error.
func (v *Verifier) resolve(ctx context.Context, identityToken, plateToken string) (*identity.Identity, *vehicle.Vehicle, error) {
	var ident *identity.Identity
	if identityToken != "" {
		var err error
		ident, err = v.identities.GetByExternalID(ctx, identityToken)
		if err != nil {
			v.logger.ErrorContext(ctx, "identity lookup failed", "error", err)
			return nil, nil, fmt.Errorf("%w: identity lookup: %v", ErrStoreUnavailable, err)
		}
	}

	veh, err := v.vehicles.GetByPlate(ctx, plateToken)
	if err != nil {
		v.logger.ErrorContext(ctx, "vehicle lookup failed", "error", err)
		return nil, nil, fmt.Errorf("%w: vehicle lookup: %v", ErrStoreUnavailable, err)
	}
	return ident, veh, nil
}

func (v *Verifier) writeLog(
	ctx context.Context,
	ident *identity.Identity,
	veh *vehicle.Vehicle,
	plateToken, gate string,
	verdict Verdict,
	metadata map[string]any,
) (*accesslog.Entry, error) {
	entry := &accesslog.Entry{
		Plate:    plateToken,
		Gate:     gate,
		Status:   accesslog.StatusGranted,
		Metadata: metadata,
	}
	if !verdict.Valid {
		entry.Status = accesslog.StatusDenied
		reason := verdict.Reason
		entry.Reason = &reason
	}
	if ident != nil {
		entry.IdentityID = &ident.ID
	}
	if veh != nil {
		entry.VehicleID = &veh.ID
	}

	stored, err := v.logs.Insert(ctx, entry)
	if err != nil {
		v.logger.ErrorContext(ctx, "failed to write access log", "error", err, "gate", gate, "plate", plateToken)
		return nil, fmt.Errorf("%w: access log write: %v", ErrStoreUnavailable, err)
	}

	// Attach the resolved records for display; they are not stored on
	// the log row itself.
	stored.Identity = ident
	stored.Vehicle = veh
	return stored, nil
}

func (v *Verifier) writeDenialAlert(ctx context.Context, identityToken, plateToken, gate, reason string) (*alert.Alert, error) {
	a := &alert.Alert{
		Category:    alert.CategoryUnauthorizedAccess,
		Severity:    alert.SeverityCritical,
		Title:       "Unauthorized Access Attempt",
		Description: fmt.Sprintf("%s: vehicle %s was denied entry", reason, plateToken),
		Gate:        &gate,
		Metadata: map[string]any{
			"identityToken": identityToken,
			"plateToken":    plateToken,
		},
	}

	created, err := v.alerts.Insert(ctx, a)
	if err != nil {
		v.logger.ErrorContext(ctx, "failed to create alert", "error", err, "gate", gate, "plate", plateToken)
		return nil, fmt.Errorf("%w: alert write: %v", ErrStoreUnavailable, err)
	}

	if v.metrics != nil {
		v.metrics.IncAlertCreated()
	}
	return created, nil
}
