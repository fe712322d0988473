// Package mysql persists the quota ledger in MySQL.
package mysql

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

// MySQLUsageRepository stores one quota_usage row per owner, keyed by BINARY(16).
type MySQLUsageRepository struct {
	db *sql.DB
}

// NewMySQLUsageRepository creates a new MySQL usage repository.
func NewMySQLUsageRepository(db *sql.DB) *MySQLUsageRepository {
	return &MySQLUsageRepository{db: db}
}

// Get returns the owner's usage. Owners without a row have zero usage.
func (m *MySQLUsageRepository) Get(ctx context.Context, ownerID uuid.UUID) (*quotaDomain.Usage, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}

	usage := quotaDomain.Usage{OwnerID: ownerID}
	err = querier.QueryRowContext(
		ctx,
		`SELECT used_bytes, updated_at FROM quota_usage WHERE owner_id = ?`,
		id,
	).Scan(&usage.UsedBytes, &usage.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &usage, nil
		}
		return nil, apperrors.Wrap(err, "failed to get quota usage")
	}
	return &usage, nil
}

// Increment upserts the owner's row, then reads the total back. Callers run it
// inside a transaction so the read sees the locked row.
func (m *MySQLUsageRepository) Increment(ctx context.Context, ownerID uuid.UUID, delta int64) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := ownerID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal owner id")
	}

	_, err = querier.ExecContext(
		ctx,
		`INSERT INTO quota_usage (owner_id, used_bytes, updated_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE used_bytes = used_bytes + VALUES(used_bytes), updated_at = VALUES(updated_at)`,
		id,
		delta,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment quota usage")
	}

	var total int64
	err = querier.QueryRowContext(ctx, `SELECT used_bytes FROM quota_usage WHERE owner_id = ?`, id).Scan(&total)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read quota usage")
	}
	return total, nil
}

// Decrement subtracts delta, clamping at zero.
func (m *MySQLUsageRepository) Decrement(ctx context.Context, ownerID uuid.UUID, delta int64) error {
	querier := database.GetTx(ctx, m.db)

	id, err := ownerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal owner id")
	}

	_, err = querier.ExecContext(
		ctx,
		`UPDATE quota_usage SET used_bytes = GREATEST(CAST(used_bytes AS SIGNED) - ?, 0), updated_at = ? WHERE owner_id = ?`,
		delta,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to decrement quota usage")
	}
	return nil
}
