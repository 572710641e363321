package accesslog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/tracing"
	"github.com/campusgate/gatewatch/internal/vehicle"
)

// PostgresRepository implements Repository using PostgreSQL.
// Metadata is stored as JSONB; reads join identities and vehicles so the
// dashboard gets display-ready rows.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new entry.
func (r *PostgresRepository) Insert(ctx context.Context, entry *Entry) (stored *Entry, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "access_logs", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal access log metadata: %w", err)
	}

	query := `
		INSERT INTO access_logs (id, identity_id, vehicle_id, plate, gate, status, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.IdentityID,
		entry.VehicleID,
		entry.Plate,
		entry.Gate,
		entry.Status,
		entry.Reason,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert access log: %w", err)
	}

	entryCopy := *entry
	return &entryCopy, nil
}

// ListRecent retrieves entries sorted by time, newest first, joined with
// their identity and vehicle records where they resolved.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) (results []*Entry, err error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "access_logs", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT l.id, l.identity_id, l.vehicle_id, l.plate, l.gate, l.status, l.reason, l.metadata, l.created_at,
		       i.id, i.external_id, i.name, i.department, i.year, i.contact, i.photo_key, i.active, i.created_at,
		       v.id, v.plate, v.identity_id, v.class, v.model, v.color, v.active, v.created_at
		FROM access_logs l
		LEFT JOIN identities i ON i.id = l.identity_id
		LEFT JOIN vehicles v ON v.id = l.vehicle_id
		ORDER BY l.created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list access logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := &Entry{}
		var metadata []byte

		// Joined columns are all nullable because of the LEFT JOINs
		var identID, identExternal, identName, identDept, identContact sql.NullString
		var identPhoto *string
		var identYear sql.NullInt64
		var identActive sql.NullBool
		var identCreated sql.NullTime
		var vehID, vehPlate, vehIdentityID, vehClass sql.NullString
		var vehModel, vehColor *string
		var vehActive sql.NullBool
		var vehCreated sql.NullTime

		err = rows.Scan(
			&entry.ID, &entry.IdentityID, &entry.VehicleID, &entry.Plate, &entry.Gate,
			&entry.Status, &entry.Reason, &metadata, &entry.CreatedAt,
			&identID, &identExternal, &identName, &identDept, &identYear, &identContact, &identPhoto, &identActive, &identCreated,
			&vehID, &vehPlate, &vehIdentityID, &vehClass, &vehModel, &vehColor, &vehActive, &vehCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access log: %w", err)
		}

		if len(metadata) > 0 {
			if err = json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal access log metadata: %w", err)
			}
		}

		if identID.Valid {
			entry.Identity = &identity.Identity{
				ID:         identID.String,
				ExternalID: identExternal.String,
				Name:       identName.String,
				Department: identDept.String,
				Year:       int(identYear.Int64),
				Contact:    identContact.String,
				PhotoKey:   identPhoto,
				Active:     identActive.Bool,
				CreatedAt:  identCreated.Time,
			}
		}
		if vehID.Valid {
			entry.Vehicle = &vehicle.Vehicle{
				ID:         vehID.String,
				Plate:      vehPlate.String,
				IdentityID: vehIdentityID.String,
				Class:      vehClass.String,
				Model:      vehModel,
				Color:      vehColor,
				Active:     vehActive.Bool,
				CreatedAt:  vehCreated.Time,
			}
		}

		results = append(results, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access logs: %w", err)
	}
	return results, nil
}

// TodayStats aggregates today's entries for the dashboard.
func (r *PostgresRepository) TodayStats(ctx context.Context) (stats *Stats, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "access_logs", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'granted'),
		       COUNT(*) FILTER (WHERE status = 'denied'),
		       COUNT(DISTINCT gate)
		FROM access_logs
		WHERE created_at >= date_trunc('day', now() AT TIME ZONE 'utc')
	`
	stats = &Stats{}
	err = r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalAccess,
		&stats.Granted,
		&stats.Denied,
		&stats.ActiveGates,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate today stats: %w", err)
	}
	return stats, nil
}
