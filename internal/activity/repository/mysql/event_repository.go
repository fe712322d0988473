// Package mysql persists activity events in MySQL.
package mysql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
)

// MySQLEventRepository implements the activity outbox on MySQL. UUIDs are stored
// as BINARY(16).
type MySQLEventRepository struct {
	db *sql.DB
}

// NewMySQLEventRepository creates a new MySQL activity event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// Create inserts a pending event.
func (r *MySQLEventRepository) Create(ctx context.Context, event *activityDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	var membershipID []byte
	if event.MembershipID != nil {
		membershipID = event.MembershipID[:]
	}

	query := `INSERT INTO activity_events (id, action, principal_id, file_id, membership_id, metadata,
			  status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID[:],
		event.Action,
		event.PrincipalID[:],
		event.FileID[:],
		membershipID,
		event.Metadata,
		event.Status,
		event.Retries,
		event.LastError,
		event.ProcessedAt,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create activity event")
	}
	return nil
}

// GetPending locks up to limit pending events, oldest first.
func (r *MySQLEventRepository) GetPending(ctx context.Context, limit int) ([]*activityDomain.Event, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, action, principal_id, file_id, membership_id, metadata, status, retries,
			  last_error, processed_at, created_at, updated_at
			  FROM activity_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, activityDomain.StatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending activity events")
	}
	defer rows.Close() //nolint:errcheck

	var events []*activityDomain.Event
	for rows.Next() {
		var event activityDomain.Event
		var id, principalID, fileID, membershipID []byte

		err := rows.Scan(
			&id,
			&event.Action,
			&principalID,
			&fileID,
			&membershipID,
			&event.Metadata,
			&event.Status,
			&event.Retries,
			&event.LastError,
			&event.ProcessedAt,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan activity event")
		}

		if err := event.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal event id")
		}
		if err := event.PrincipalID.UnmarshalBinary(principalID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal principal id")
		}
		if err := event.FileID.UnmarshalBinary(fileID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal file id")
		}
		if membershipID != nil {
			var mid uuid.UUID
			if err := mid.UnmarshalBinary(membershipID); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal membership id")
			}
			event.MembershipID = &mid
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate activity events")
	}
	return events, nil
}

// Update stores relay progress for an event.
func (r *MySQLEventRepository) Update(ctx context.Context, event *activityDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE activity_events
			  SET status = ?, retries = ?, last_error = ?, processed_at = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.Status,
		event.Retries,
		event.LastError,
		event.ProcessedAt,
		event.UpdatedAt,
		event.ID[:],
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update activity event")
	}
	return nil
}
