package identity

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

const identityColumns = `id, external_id, name, department, year, contact, photo_key, active, created_at`

// Insert stores a new identity.
func (r *PostgresRepository) Insert(ctx context.Context, ident *Identity) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "identities", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO identities (id, external_id, name, department, year, contact, photo_key, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		ident.ID,
		ident.ExternalID,
		ident.Name,
		ident.Department,
		ident.Year,
		ident.Contact,
		ident.PhotoKey,
		ident.Active,
		ident.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateExternalID
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// GetByExternalID retrieves an identity by its campus ID.
// Returns (nil, nil) when no record matches.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE external_id = $1`
	return r.getOne(ctx, query, externalID)
}

// GetByID retrieves an identity by its internal UUID.
// Returns (nil, nil) when no record matches.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (ident *Identity, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "identities", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	ident = &Identity{}
	err = r.db.QueryRowContext(ctx, query, arg).Scan(
		&ident.ID,
		&ident.ExternalID,
		&ident.Name,
		&ident.Department,
		&ident.Year,
		&ident.Contact,
		&ident.PhotoKey,
		&ident.Active,
		&ident.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return ident, nil
}

// List returns all identities, oldest first.
func (r *PostgresRepository) List(ctx context.Context) (results []*Identity, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "identities", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + identityColumns + ` FROM identities ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ident := &Identity{}
		err = rows.Scan(
			&ident.ID,
			&ident.ExternalID,
			&ident.Name,
			&ident.Department,
			&ident.Year,
			&ident.Contact,
			&ident.PhotoKey,
			&ident.Active,
			&ident.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		results = append(results, ident)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating identities: %w", err)
	}
	return results, nil
}

// Update modifies an existing identity.
func (r *PostgresRepository) Update(ctx context.Context, ident *Identity) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "identities", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	query := `
		UPDATE identities
		SET external_id = $2, name = $3, department = $4, year = $5,
		    contact = $6, photo_key = $7, active = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		ident.ID,
		ident.ExternalID,
		ident.Name,
		ident.Department,
		ident.Year,
		ident.Contact,
		ident.PhotoKey,
		ident.Active,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateExternalID
		}
		return fmt.Errorf("failed to update identity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// Deactivate clears the active flag.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "identities", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE identities SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate identity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read deactivate result: %w", err)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}
