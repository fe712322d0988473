// Package postgresql persists activity events in PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
)

// PostgreSQLEventRepository implements the activity outbox on PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQL activity event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create inserts a pending event.
func (r *PostgreSQLEventRepository) Create(ctx context.Context, event *activityDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO activity_events (id, action, principal_id, file_id, membership_id, metadata,
			  status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.Action,
		event.PrincipalID,
		event.FileID,
		event.MembershipID,
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

// GetPending locks up to limit pending events, oldest first. Concurrent relays
// skip rows another relay already holds.
func (r *PostgreSQLEventRepository) GetPending(ctx context.Context, limit int) ([]*activityDomain.Event, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, action, principal_id, file_id, membership_id, metadata, status, retries,
			  last_error, processed_at, created_at, updated_at
			  FROM activity_events
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, activityDomain.StatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending activity events")
	}
	defer rows.Close() //nolint:errcheck

	var events []*activityDomain.Event
	for rows.Next() {
		var event activityDomain.Event
		err := rows.Scan(
			&event.ID,
			&event.Action,
			&event.PrincipalID,
			&event.FileID,
			&event.MembershipID,
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
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate activity events")
	}
	return events, nil
}

// Update stores relay progress for an event.
func (r *PostgreSQLEventRepository) Update(ctx context.Context, event *activityDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE activity_events
			  SET status = $1, retries = $2, last_error = $3, processed_at = $4, updated_at = $5
			  WHERE id = $6`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.Status,
		event.Retries,
		event.LastError,
		event.ProcessedAt,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update activity event")
	}
	return nil
}
