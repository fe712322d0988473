// Package bolt persists the quota ledger in the embedded bbolt store.
package bolt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
)

// BoltUsageRepository stores gob-encoded usage records keyed by owner id.
type BoltUsageRepository struct {
	db *bbolt.DB
}

// NewBoltUsageRepository creates a new bbolt usage repository.
func NewBoltUsageRepository(db *bbolt.DB) *BoltUsageRepository {
	return &BoltUsageRepository{db: db}
}

// Get returns the owner's usage. Owners without a record have zero usage.
func (b *BoltUsageRepository) Get(ctx context.Context, ownerID uuid.UUID) (*quotaDomain.Usage, error) {
	var usage *quotaDomain.Usage
	err := database.BoltView(ctx, b.db, func(tx *bbolt.Tx) error {
		var err error
		usage, err = readUsage(tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// Increment adds delta inside a single write transaction and returns the new total.
func (b *BoltUsageRepository) Increment(ctx context.Context, ownerID uuid.UUID, delta int64) (int64, error) {
	var total int64
	err := database.BoltUpdate(ctx, b.db, func(tx *bbolt.Tx) error {
		usage, err := readUsage(tx, ownerID)
		if err != nil {
			return err
		}
		usage.UsedBytes += delta
		usage.UpdatedAt = time.Now().UTC()
		total = usage.UsedBytes
		return writeUsage(tx, usage)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Decrement subtracts delta, clamping at zero.
func (b *BoltUsageRepository) Decrement(ctx context.Context, ownerID uuid.UUID, delta int64) error {
	return database.BoltUpdate(ctx, b.db, func(tx *bbolt.Tx) error {
		usage, err := readUsage(tx, ownerID)
		if err != nil {
			return err
		}
		usage.UsedBytes = max(usage.UsedBytes-delta, 0)
		usage.UpdatedAt = time.Now().UTC()
		return writeUsage(tx, usage)
	})
}

func readUsage(tx *bbolt.Tx, ownerID uuid.UUID) (*quotaDomain.Usage, error) {
	data := tx.Bucket(database.BucketQuotaUsage).Get(ownerID[:])
	if data == nil {
		return &quotaDomain.Usage{OwnerID: ownerID}, nil
	}
	var usage quotaDomain.Usage
	if err := database.DecodeGob(data, &usage); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode quota usage")
	}
	return &usage, nil
}

func writeUsage(tx *bbolt.Tx, usage *quotaDomain.Usage) error {
	data, err := database.EncodeGob(usage)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode quota usage")
	}
	if err := tx.Bucket(database.BucketQuotaUsage).Put(usage.OwnerID[:], data); err != nil {
		return apperrors.Wrap(err, "failed to store quota usage")
	}
	return nil
}
