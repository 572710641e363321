package vehicle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campusgate/gatewatch/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const vehicleColumns = `id, plate, identity_id, class, model, color, active, created_at`

// Insert stores a new vehicle.
func (r *PostgresRepository) Insert(ctx context.Context, v *Vehicle) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vehicles", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO vehicles (id, plate, identity_id, class, model, color, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		v.ID,
		v.Plate,
		v.IdentityID,
		v.Class,
		v.Model,
		v.Color,
		v.Active,
		v.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicatePlate
		}
		return fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return nil
}

// GetByPlate retrieves a vehicle by its plate string (exact, case-sensitive).
// Returns (nil, nil) when no record matches.
func (r *PostgresRepository) GetByPlate(ctx context.Context, plate string) (v *Vehicle, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vehicles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE plate = $1`

	v = &Vehicle{}
	err = r.db.QueryRowContext(ctx, query, plate).Scan(
		&v.ID,
		&v.Plate,
		&v.IdentityID,
		&v.Class,
		&v.Model,
		&v.Color,
		&v.Active,
		&v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// List returns all vehicles, oldest first.
func (r *PostgresRepository) List(ctx context.Context) (results []*Vehicle, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vehicles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v := &Vehicle{}
		err = rows.Scan(
			&v.ID,
			&v.Plate,
			&v.IdentityID,
			&v.Class,
			&v.Model,
			&v.Color,
			&v.Active,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		results = append(results, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vehicles: %w", err)
	}
	return results, nil
}

// Delete removes a vehicle by plate.
func (r *PostgresRepository) Delete(ctx context.Context, plate string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "vehicles", tracing.DBOperationDelete)
	defer func() { endSpan(err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE plate = $1`, plate)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrVehicleNotFound
	}
	return nil
}
