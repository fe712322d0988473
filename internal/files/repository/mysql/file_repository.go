// Package mysql persists stored file metadata in MySQL.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
)

const fileColumns = `id, owner_id, team_id, original_name, stored_name, size, content_type,
			  nonce, digest, uploaded_at, expires_at, is_deleted`

// MySQLFileRepository implements StoredFile persistence for MySQL. UUIDs are
// stored as BINARY(16).
type MySQLFileRepository struct {
	db *sql.DB
}

// NewMySQLFileRepository creates a new MySQL file repository.
func NewMySQLFileRepository(db *sql.DB) *MySQLFileRepository {
	return &MySQLFileRepository{db: db}
}

// Create inserts file metadata.
func (r *MySQLFileRepository) Create(ctx context.Context, file *filesDomain.StoredFile) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO files (` + fileColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var teamID []byte
	if file.TeamID != nil {
		teamID = file.TeamID[:]
	}

	_, err := querier.ExecContext(
		ctx,
		query,
		file.ID[:],
		file.OwnerID[:],
		teamID,
		file.OriginalName,
		file.StoredName,
		file.Size,
		file.ContentType,
		file.Nonce,
		file.DigestHex,
		file.UploadedAt,
		file.ExpiresAt,
		file.IsDeleted,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "file already exists")
		}
		return apperrors.Wrap(err, "failed to create file")
	}
	return nil
}

// Get returns a file by id, deleted or not.
func (r *MySQLFileRepository) Get(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ?`

	file, err := scanFile(querier.QueryRowContext(ctx, query, id[:]))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, filesDomain.ErrFileNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get file")
	}
	return file, nil
}

// ListByOwner returns live files of ownerID in upload order.
func (r *MySQLFileRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*filesDomain.StoredFile, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fileColumns + ` FROM files
			  WHERE owner_id = ? AND is_deleted = FALSE
			  ORDER BY uploaded_at ASC, id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, ownerID[:], limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list files")
	}
	return collectFiles(rows)
}

// ListExpired returns live files whose expires_at is at or before now.
func (r *MySQLFileRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*filesDomain.StoredFile, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + fileColumns + ` FROM files
			  WHERE is_deleted = FALSE AND expires_at IS NOT NULL AND expires_at <= ?
			  ORDER BY expires_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list expired files")
	}
	return collectFiles(rows)
}

// MarkDeleted flips is_deleted if it is still false.
func (r *MySQLFileRepository) MarkDeleted(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE files SET is_deleted = TRUE WHERE id = ? AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, id[:])
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark file deleted")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*filesDomain.StoredFile, error) {
	var file filesDomain.StoredFile
	var id, ownerID, teamID []byte

	err := row.Scan(
		&id,
		&ownerID,
		&teamID,
		&file.OriginalName,
		&file.StoredName,
		&file.Size,
		&file.ContentType,
		&file.Nonce,
		&file.DigestHex,
		&file.UploadedAt,
		&file.ExpiresAt,
		&file.IsDeleted,
	)
	if err != nil {
		return nil, err
	}

	if err := file.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal file id")
	}
	if err := file.OwnerID.UnmarshalBinary(ownerID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal owner id")
	}
	if len(teamID) > 0 {
		var team uuid.UUID
		if err := team.UnmarshalBinary(teamID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal team id")
		}
		file.TeamID = &team
	}
	return &file, nil
}

func collectFiles(rows *sql.Rows) ([]*filesDomain.StoredFile, error) {
	defer rows.Close() //nolint:errcheck

	files := make([]*filesDomain.StoredFile, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan file")
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate files")
	}
	return files, nil
}
