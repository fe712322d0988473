package database

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Buckets used by the embedded metadata store.
var (
	BucketFiles            = []byte("files")
	BucketVaultMemberships = []byte("vault_memberships")
	BucketVaultByFile      = []byte("vault_memberships_by_file")
	BucketQuotaUsage       = []byte("quota_usage")
	BucketActivityEvents   = []byte("activity_events")
)

type boltTxKey struct{}

// OpenBolt opens or creates the bbolt database at path and makes sure every
// bucket exists. The parent directory is created if needed.
func OpenBolt(path string) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create bolt directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			BucketFiles,
			BucketVaultMemberships,
			BucketVaultByFile,
			BucketQuotaUsage,
			BucketActivityEvents,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bolt buckets: %w", err)
	}

	return db, nil
}

// boltTxManager implements TxManager on a single bbolt read-write transaction.
type boltTxManager struct {
	db *bbolt.DB
}

// NewBoltTxManager creates a TxManager for the embedded store.
func NewBoltTxManager(db *bbolt.DB) TxManager {
	return &boltTxManager{db: db}
}

// WithTx runs fn inside one bbolt write transaction. Returning an error rolls
// every write back.
func (m *boltTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(boltTxKey{}).(*bbolt.Tx); ok {
		return fn(ctx)
	}
	return m.db.Update(func(tx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, boltTxKey{}, tx))
	})
}

// BoltUpdate runs fn in the write transaction carried by ctx, or in a new one.
func BoltUpdate(ctx context.Context, db *bbolt.DB, fn func(tx *bbolt.Tx) error) error {
	if tx, ok := ctx.Value(boltTxKey{}).(*bbolt.Tx); ok && tx.Writable() {
		return fn(tx)
	}
	return db.Update(fn)
}

// BoltView runs fn in the transaction carried by ctx, or in a new read-only one.
func BoltView(ctx context.Context, db *bbolt.DB, fn func(tx *bbolt.Tx) error) error {
	if tx, ok := ctx.Value(boltTxKey{}).(*bbolt.Tx); ok {
		return fn(tx)
	}
	return db.View(fn)
}

// EncodeGob serializes v for storage in a bucket.
func EncodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeGob deserializes a bucket value into v.
func DecodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
