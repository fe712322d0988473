// Package mysql persists vault memberships in MySQL.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

const membershipColumns = `id, file_id, owner_id, pin_hash, access_count, last_accessed_at,
			  self_destruct, destruct_after, reserved_bytes, created_at`

// MySQLMembershipRepository implements vault membership persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLMembershipRepository struct {
	db *sql.DB
}

// NewMySQLMembershipRepository creates a new MySQL membership repository.
func NewMySQLMembershipRepository(db *sql.DB) *MySQLMembershipRepository {
	return &MySQLMembershipRepository{db: db}
}

// Create inserts a membership. The unique index on file_id rejects a second one.
func (r *MySQLMembershipRepository) Create(ctx context.Context, m *vaultDomain.Membership) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO vault_memberships (` + membershipColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		m.ID[:],
		m.FileID[:],
		m.OwnerID[:],
		m.PinHash,
		m.AccessCount,
		m.LastAccessedAt,
		m.SelfDestruct,
		m.DestructAfter,
		m.ReservedBytes,
		m.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return vaultDomain.ErrAlreadyInVault
		}
		return apperrors.Wrap(err, "failed to create vault membership")
	}
	return nil
}

// Get returns a membership by id.
func (r *MySQLMembershipRepository) Get(ctx context.Context, id uuid.UUID) (*vaultDomain.Membership, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + membershipColumns + ` FROM vault_memberships WHERE id = ?`

	return getMembership(querier.QueryRowContext(ctx, query, id[:]))
}

// GetByFileID returns the membership of a file.
func (r *MySQLMembershipRepository) GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + membershipColumns + ` FROM vault_memberships WHERE file_id = ?`

	return getMembership(querier.QueryRowContext(ctx, query, fileID[:]))
}

// ExistsForFile reports whether a file has a membership.
func (r *MySQLMembershipRepository) ExistsForFile(ctx context.Context, fileID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	var exists bool
	err := querier.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM vault_memberships WHERE file_id = ?)`,
		fileID[:],
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check vault membership")
	}
	return exists, nil
}

// Delete removes a membership and reports whether a row was deleted.
func (r *MySQLMembershipRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM vault_memberships WHERE id = ?`, id[:])
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete vault membership")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected > 0, nil
}

// RecordAccess increments access_count in a single statement.
func (r *MySQLMembershipRepository) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE vault_memberships
			  SET access_count = access_count + 1, last_accessed_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, at, id[:])
	if err != nil {
		return apperrors.Wrap(err, "failed to record vault access")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return vaultDomain.ErrMembershipNotFound
	}
	return nil
}

// ListLapsed returns self-destructing memberships whose deadline is at or before now.
func (r *MySQLMembershipRepository) ListLapsed(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*vaultDomain.Membership, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + membershipColumns + ` FROM vault_memberships
			  WHERE self_destruct = TRUE AND destruct_after <= ?
			  ORDER BY destruct_after ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list lapsed vault memberships")
	}
	defer rows.Close() //nolint:errcheck

	memberships := make([]*vaultDomain.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan vault membership")
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate vault memberships")
	}
	return memberships, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*vaultDomain.Membership, error) {
	var m vaultDomain.Membership
	var id, fileID, ownerID []byte

	err := row.Scan(
		&id,
		&fileID,
		&ownerID,
		&m.PinHash,
		&m.AccessCount,
		&m.LastAccessedAt,
		&m.SelfDestruct,
		&m.DestructAfter,
		&m.ReservedBytes,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := m.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal membership id")
	}
	if err := m.FileID.UnmarshalBinary(fileID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal file id")
	}
	if err := m.OwnerID.UnmarshalBinary(ownerID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal owner id")
	}
	return &m, nil
}

func getMembership(row *sql.Row) (*vaultDomain.Membership, error) {
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrMembershipNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault membership")
	}
	return m, nil
}
