// Package postgresql persists the quota ledger in PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
)

// PostgreSQLUsageRepository stores one quota_usage row per owner.
type PostgreSQLUsageRepository struct {
	db *sql.DB
}

// NewPostgreSQLUsageRepository creates a new PostgreSQL usage repository.
func NewPostgreSQLUsageRepository(db *sql.DB) *PostgreSQLUsageRepository {
	return &PostgreSQLUsageRepository{db: db}
}

// Get returns the owner's usage. Owners without a row have zero usage.
func (p *PostgreSQLUsageRepository) Get(ctx context.Context, ownerID uuid.UUID) (*quotaDomain.Usage, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT owner_id, used_bytes, updated_at FROM quota_usage WHERE owner_id = $1`

	var usage quotaDomain.Usage
	err := querier.QueryRowContext(ctx, query, ownerID).Scan(&usage.OwnerID, &usage.UsedBytes, &usage.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &quotaDomain.Usage{OwnerID: ownerID}, nil
		}
		return nil, apperrors.Wrap(err, "failed to get quota usage")
	}
	return &usage, nil
}

// Increment upserts the owner's row and returns the new total in one statement.
func (p *PostgreSQLUsageRepository) Increment(ctx context.Context, ownerID uuid.UUID, delta int64) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO quota_usage (owner_id, used_bytes, updated_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (owner_id) DO UPDATE
			  SET used_bytes = quota_usage.used_bytes + EXCLUDED.used_bytes,
			      updated_at = EXCLUDED.updated_at
			  RETURNING used_bytes`

	var total int64
	if err := querier.QueryRowContext(ctx, query, ownerID, delta, time.Now().UTC()).Scan(&total); err != nil {
		return 0, apperrors.Wrap(err, "failed to increment quota usage")
	}
	return total, nil
}

// Decrement subtracts delta, clamping at zero.
func (p *PostgreSQLUsageRepository) Decrement(ctx context.Context, ownerID uuid.UUID, delta int64) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE quota_usage
			  SET used_bytes = GREATEST(used_bytes - $1, 0), updated_at = $2
			  WHERE owner_id = $3`

	if _, err := querier.ExecContext(ctx, query, delta, time.Now().UTC(), ownerID); err != nil {
		return apperrors.Wrap(err, "failed to decrement quota usage")
	}
	return nil
}
