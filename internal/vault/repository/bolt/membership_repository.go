// Package bolt persists vault memberships in the embedded bbolt store.
package bolt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

// BoltMembershipRepository keeps memberships by id plus a file id index that
// enforces one membership per file.
type BoltMembershipRepository struct {
	db *bbolt.DB
}

// NewBoltMembershipRepository creates a new bbolt membership repository.
func NewBoltMembershipRepository(db *bbolt.DB) *BoltMembershipRepository {
	return &BoltMembershipRepository{db: db}
}

// Create inserts a membership unless the file already has one.
func (r *BoltMembershipRepository) Create(ctx context.Context, m *vaultDomain.Membership) error {
	return database.BoltUpdate(ctx, r.db, func(tx *bbolt.Tx) error {
		byFile := tx.Bucket(database.BucketVaultByFile)
		if byFile.Get(m.FileID[:]) != nil {
			return vaultDomain.ErrAlreadyInVault
		}
		if err := byFile.Put(m.FileID[:], m.ID[:]); err != nil {
			return apperrors.Wrap(err, "failed to index vault membership")
		}
		return putMembership(tx, m)
	})
}

// Get returns a membership by id.
func (r *BoltMembershipRepository) Get(ctx context.Context, id uuid.UUID) (*vaultDomain.Membership, error) {
	var m *vaultDomain.Membership
	err := database.BoltView(ctx, r.db, func(tx *bbolt.Tx) error {
		var err error
		m, err = getMembership(tx, id[:])
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByFileID returns the membership of a file.
func (r *BoltMembershipRepository) GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error) {
	var m *vaultDomain.Membership
	err := database.BoltView(ctx, r.db, func(tx *bbolt.Tx) error {
		id := tx.Bucket(database.BucketVaultByFile).Get(fileID[:])
		if id == nil {
			return vaultDomain.ErrMembershipNotFound
		}
		var err error
		m, err = getMembership(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ExistsForFile reports whether a file has a membership.
func (r *BoltMembershipRepository) ExistsForFile(ctx context.Context, fileID uuid.UUID) (bool, error) {
	exists := false
	err := database.BoltView(ctx, r.db, func(tx *bbolt.Tx) error {
		exists = tx.Bucket(database.BucketVaultByFile).Get(fileID[:]) != nil
		return nil
	})
	return exists, err
}

// Delete removes a membership and its index entry.
func (r *BoltMembershipRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted := false
	err := database.BoltUpdate(ctx, r.db, func(tx *bbolt.Tx) error {
		m, err := getMembership(tx, id[:])
		if err != nil {
			if apperrors.Is(err, vaultDomain.ErrMembershipNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Bucket(database.BucketVaultByFile).Delete(m.FileID[:]); err != nil {
			return apperrors.Wrap(err, "failed to delete vault membership index")
		}
		if err := tx.Bucket(database.BucketVaultMemberships).Delete(id[:]); err != nil {
			return apperrors.Wrap(err, "failed to delete vault membership")
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// RecordAccess increments the access counter within one write transaction.
func (r *BoltMembershipRepository) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	return database.BoltUpdate(ctx, r.db, func(tx *bbolt.Tx) error {
		m, err := getMembership(tx, id[:])
		if err != nil {
			return err
		}
		m.AccessCount++
		stamp := at.UTC()
		m.LastAccessedAt = &stamp
		return putMembership(tx, m)
	})
}

// ListLapsed returns self-destructing memberships whose deadline is at or before now.
func (r *BoltMembershipRepository) ListLapsed(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*vaultDomain.Membership, error) {
	memberships := make([]*vaultDomain.Membership, 0)
	err := database.BoltView(ctx, r.db, func(tx *bbolt.Tx) error {
		c := tx.Bucket(database.BucketVaultMemberships).Cursor()
		for k, v := c.First(); k != nil && len(memberships) < limit; k, v = c.Next() {
			var m vaultDomain.Membership
			if err := database.DecodeGob(v, &m); err != nil {
				return apperrors.Wrap(err, "failed to decode vault membership")
			}
			if m.Lapsed(now) {
				memberships = append(memberships, &m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func getMembership(tx *bbolt.Tx, id []byte) (*vaultDomain.Membership, error) {
	data := tx.Bucket(database.BucketVaultMemberships).Get(id)
	if data == nil {
		return nil, vaultDomain.ErrMembershipNotFound
	}
	var m vaultDomain.Membership
	if err := database.DecodeGob(data, &m); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode vault membership")
	}
	return &m, nil
}

func putMembership(tx *bbolt.Tx, m *vaultDomain.Membership) error {
	data, err := database.EncodeGob(m)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode vault membership")
	}
	if err := tx.Bucket(database.BucketVaultMemberships).Put(m.ID[:], data); err != nil {
		return apperrors.Wrap(err, "failed to store vault membership")
	}
	return nil
}
