package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func openTestBolt(t *testing.T) *bbolt.DB {
	t.Helper()
	db, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestOpenBolt_CreatesBuckets(t *testing.T) {
	db := openTestBolt(t)

	err := db.View(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			BucketFiles,
			BucketVaultMemberships,
			BucketVaultByFile,
			BucketQuotaUsage,
			BucketActivityEvents,
		} {
			assert.NotNil(t, tx.Bucket(name), "bucket %s", name)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBoltTxManager_WithTx(t *testing.T) {
	db := openTestBolt(t)
	txManager := NewBoltTxManager(db)
	ctx := context.Background()

	t.Run("Success_Commit", func(t *testing.T) {
		err := txManager.WithTx(ctx, func(ctx context.Context) error {
			return BoltUpdate(ctx, db, func(tx *bbolt.Tx) error {
				return tx.Bucket(BucketFiles).Put([]byte("a"), []byte("1"))
			})
		})
		require.NoError(t, err)

		err = BoltView(ctx, db, func(tx *bbolt.Tx) error {
			assert.Equal(t, []byte("1"), tx.Bucket(BucketFiles).Get([]byte("a")))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Rollback_OnError", func(t *testing.T) {
		err := txManager.WithTx(ctx, func(ctx context.Context) error {
			if err := BoltUpdate(ctx, db, func(tx *bbolt.Tx) error {
				return tx.Bucket(BucketFiles).Put([]byte("b"), []byte("2"))
			}); err != nil {
				return err
			}
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		err = BoltView(ctx, db, func(tx *bbolt.Tx) error {
			assert.Nil(t, tx.Bucket(BucketFiles).Get([]byte("b")))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Nested_ReusesTransaction", func(t *testing.T) {
		err := txManager.WithTx(ctx, func(outer context.Context) error {
			return txManager.WithTx(outer, func(inner context.Context) error {
				return BoltView(inner, db, func(tx *bbolt.Tx) error {
					assert.True(t, tx.Writable())
					return nil
				})
			})
		})
		require.NoError(t, err)
	})
}

func TestGob(t *testing.T) {
	type record struct {
		Name string
		At   time.Time
		Opt  *time.Time
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	in := record{Name: "x", At: now, Opt: &now}

	data, err := EncodeGob(in)
	require.NoError(t, err)

	var out record
	require.NoError(t, DecodeGob(data, &out))
	assert.Equal(t, in.Name, out.Name)
	assert.True(t, in.At.Equal(out.At))
	require.NotNil(t, out.Opt)
	assert.True(t, now.Equal(*out.Opt))
}
