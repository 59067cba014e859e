package apps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no application matches the query.
var ErrNotFound = errors.New("application not found")

// Repository defines the interface for saved-application data access
type Repository interface {
	Create(ctx context.Context, app *Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*Application, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Application, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, app *Application) error {
	query := `
		INSERT INTO applications (
			id, owner_id, tenant_id, name, website_url, app_url,
			snapshot_key, providers, config, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		app.ID, app.OwnerID, app.TenantID, app.Name, app.WebsiteURL, app.AppURL,
		app.SnapshotKey, app.Providers, app.Config, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Application, error) {
	query := `
		SELECT id, owner_id, tenant_id, name, website_url, app_url,
			   snapshot_key, providers, config, created_at, updated_at
		FROM applications
		WHERE id = $1
	`

	var app Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return &app, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Application, error) {
	query := `
		SELECT id, owner_id, tenant_id, name, website_url, app_url,
			   snapshot_key, providers, config, created_at, updated_at
		FROM applications
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	var out []*Application
	if err := r.db.SelectContext(ctx, &out, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `DELETE FROM applications WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
