package alert

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campusgate/gatewatch/internal/tracing"
)

const alertColumns = "id, category, severity, title, description, gate, metadata, read, created_at"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new alert.
func (r *PostgresRepository) Insert(ctx context.Context, a *Alert) (stored *Alert, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "alerts", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert metadata: %w", err)
	}

	query := `
		INSERT INTO alerts (id, category, severity, title, description, gate, metadata, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.Category,
		a.Severity,
		a.Title,
		a.Description,
		a.Gate,
		metadata,
		a.Read,
		a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert alert: %w", err)
	}

	alertCopy := *a
	return &alertCopy, nil
}

// ListRecent retrieves alerts sorted by time, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) (results []*Alert, err error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "alerts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := fmt.Sprintf(`SELECT %s FROM alerts ORDER BY created_at DESC LIMIT $1`, alertColumns)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a := &Alert{}
		var metadata []byte
		err = rows.Scan(
			&a.ID, &a.Category, &a.Severity, &a.Title, &a.Description,
			&a.Gate, &metadata, &a.Read, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if len(metadata) > 0 {
			if err = json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal alert metadata: %w", err)
			}
		}
		results = append(results, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return results, nil
}

// MarkRead acknowledges an alert.
func (r *PostgresRepository) MarkRead(ctx context.Context, id string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "alerts", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	result, err := r.db.ExecContext(ctx, `UPDATE alerts SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}
