// Package bolt persists activity events in the embedded bbolt store.
package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
)

// BoltEventRepository stores events keyed by their UUIDv7 id, so cursor order
// is creation order.
type BoltEventRepository struct {
	db *bbolt.DB
}

// NewBoltEventRepository creates a new bbolt activity event repository.
func NewBoltEventRepository(db *bbolt.DB) *BoltEventRepository {
	return &BoltEventRepository{db: db}
}

// Create inserts a pending event.
func (r *BoltEventRepository) Create(ctx context.Context, event *activityDomain.Event) error {
	return database.BoltUpdate(ctx, r.db, func(tx *bbolt.Tx) error {
		return putEvent(tx, event)
	})
}

// GetPending returns up to limit pending events, oldest first.
func (r *BoltEventRepository) GetPending(ctx context.Context, limit int) ([]*activityDomain.Event, error) {
	var events []*activityDomain.Event
	err := database.BoltView(ctx, r.db, func(tx *bbolt.Tx) error {
		c := tx.Bucket(database.BucketActivityEvents).Cursor()
		for k, v := c.First(); k != nil && len(events) < limit; k, v = c.Next() {
			var event activityDomain.Event
			if err := database.DecodeGob(v, &event); err != nil {
				return apperrors.Wrap(err, "failed to decode activity event")
			}
			if event.Status == activityDomain.StatusPending {
				events = append(events, &event)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Update stores relay progress for an event.
func (r *BoltEventRepository) Update(ctx context.Context, event *activityDomain.Event) error {
	return database.BoltUpdate(ctx, r.db, func(tx *bbolt.Tx) error {
		if tx.Bucket(database.BucketActivityEvents).Get(event.ID[:]) == nil {
			return apperrors.ErrNotFound
		}
		return putEvent(tx, event)
	})
}

func putEvent(tx *bbolt.Tx, event *activityDomain.Event) error {
	data, err := database.EncodeGob(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode activity event")
	}
	if err := tx.Bucket(database.BucketActivityEvents).Put(event.ID[:], data); err != nil {
		return apperrors.Wrap(err, "failed to store activity event")
	}
	return nil
}
