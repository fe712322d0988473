package postgresql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgreSQLUsageRepository(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV7())

	t.Run("Get_MissingRowIsZero", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT owner_id, used_bytes, updated_at FROM quota_usage WHERE owner_id = \$1`).
			WithArgs(ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "used_bytes", "updated_at"}))

		usage, err := NewPostgreSQLUsageRepository(db).Get(ctx, ownerID)
		require.NoError(t, err)
		assert.Equal(t, ownerID, usage.OwnerID)
		assert.Zero(t, usage.UsedBytes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Get_ExistingRow", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT owner_id, used_bytes, updated_at FROM quota_usage`).
			WithArgs(ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "used_bytes", "updated_at"}).
				AddRow(ownerID.String(), int64(900), time.Now()))

		usage, err := NewPostgreSQLUsageRepository(db).Get(ctx, ownerID)
		require.NoError(t, err)
		assert.Equal(t, int64(900), usage.UsedBytes)
	})

	t.Run("Increment_ReturnsTotal", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO quota_usage .* ON CONFLICT \(owner_id\) DO UPDATE .* RETURNING used_bytes`).
			WithArgs(ownerID, int64(200), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"used_bytes"}).AddRow(int64(1100)))

		total, err := NewPostgreSQLUsageRepository(db).Increment(ctx, ownerID, 200)
		require.NoError(t, err)
		assert.Equal(t, int64(1100), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Decrement_ClampsInSQL", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE quota_usage\s+SET used_bytes = GREATEST\(used_bytes - \$1, 0\)`).
			WithArgs(int64(50), sqlmock.AnyArg(), ownerID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLUsageRepository(db).Decrement(ctx, ownerID, 50))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_Driver", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO quota_usage`).WillReturnError(assert.AnError)

		_, err = NewPostgreSQLUsageRepository(db).Increment(ctx, ownerID, 1)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to increment quota usage")
	})
}
