// Package bolt persists stored file metadata in the embedded bbolt store.
package bolt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
)

// BoltFileRepository stores files keyed by their UUIDv7 id, so cursor order is
// upload order.
type BoltFileRepository struct {
	db *bbolt.DB
}

// NewBoltFileRepository creates a new bbolt file repository.
func NewBoltFileRepository(db *bbolt.DB) *BoltFileRepository {
	return &BoltFileRepository{db: db}
}

// Create inserts file metadata.
func (r *BoltFileRepository) Create(ctx context.Context, file *filesDomain.StoredFile) error {
	return database.BoltUpdate(ctx, r.db, func(tx *bbolt.Tx) error {
		if tx.Bucket(database.BucketFiles).Get(file.ID[:]) != nil {
			return apperrors.Wrap(apperrors.ErrConflict, "file already exists")
		}
		return putFile(tx, file)
	})
}

// Get returns a file by id, deleted or not.
func (r *BoltFileRepository) Get(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error) {
	var file *filesDomain.StoredFile
	err := database.BoltView(ctx, r.db, func(tx *bbolt.Tx) error {
		var err error
		file, err = getFile(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// ListByOwner returns live files of ownerID in upload order.
func (r *BoltFileRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*filesDomain.StoredFile, error) {
	files := make([]*filesDomain.StoredFile, 0)
	skipped := 0
	err := r.scan(ctx, func(file *filesDomain.StoredFile) bool {
		if file.IsDeleted || file.OwnerID != ownerID {
			return true
		}
		if skipped < offset {
			skipped++
			return true
		}
		files = append(files, file)
		return len(files) < limit
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListExpired returns live files whose expiration is at or before now.
func (r *BoltFileRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*filesDomain.StoredFile, error) {
	files := make([]*filesDomain.StoredFile, 0)
	err := r.scan(ctx, func(file *filesDomain.StoredFile) bool {
		if !file.IsDeleted && file.Expired(now) {
			files = append(files, file)
		}
		return len(files) < limit
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// MarkDeleted flips IsDeleted if it is still false.
func (r *BoltFileRepository) MarkDeleted(ctx context.Context, id uuid.UUID) (bool, error) {
	changed := false
	err := database.BoltUpdate(ctx, r.db, func(tx *bbolt.Tx) error {
		file, err := getFile(tx, id)
		if err != nil {
			if apperrors.Is(err, filesDomain.ErrFileNotFound) {
				return nil
			}
			return err
		}
		if file.IsDeleted {
			return nil
		}
		file.IsDeleted = true
		changed = true
		return putFile(tx, file)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// scan walks every file in key order until fn returns false.
func (r *BoltFileRepository) scan(ctx context.Context, fn func(file *filesDomain.StoredFile) bool) error {
	return database.BoltView(ctx, r.db, func(tx *bbolt.Tx) error {
		c := tx.Bucket(database.BucketFiles).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var file filesDomain.StoredFile
			if err := database.DecodeGob(v, &file); err != nil {
				return apperrors.Wrap(err, "failed to decode file")
			}
			if !fn(&file) {
				return nil
			}
		}
		return nil
	})
}

func getFile(tx *bbolt.Tx, id uuid.UUID) (*filesDomain.StoredFile, error) {
	data := tx.Bucket(database.BucketFiles).Get(id[:])
	if data == nil {
		return nil, filesDomain.ErrFileNotFound
	}
	var file filesDomain.StoredFile
	if err := database.DecodeGob(data, &file); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode file")
	}
	return &file, nil
}

func putFile(tx *bbolt.Tx, file *filesDomain.StoredFile) error {
	data, err := database.EncodeGob(file)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode file")
	}
	if err := tx.Bucket(database.BucketFiles).Put(file.ID[:], data); err != nil {
		return apperrors.Wrap(err, "failed to store file")
	}
	return nil
}
