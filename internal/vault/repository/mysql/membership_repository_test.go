package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestMySQLMembershipRepository_Create(t *testing.T) {
	m := &vaultDomain.Membership{
		ID:            uuid.Must(uuid.NewV7()),
		FileID:        uuid.Must(uuid.NewV7()),
		OwnerID:       uuid.Must(uuid.NewV7()),
		PinHash:       "$argon2id$fixture",
		ReservedBytes: 10,
		CreatedAt:     time.Now().UTC(),
	}

	t.Run("Success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO vault_memberships`).
			WithArgs(
				m.ID[:], m.FileID[:], m.OwnerID[:], m.PinHash, sqlmock.AnyArg(), nil,
				false, nil, sqlmock.AnyArg(), m.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewMySQLMembershipRepository(db).Create(context.Background(), m))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateFile", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO vault_memberships`).WillReturnError(&mysql.MySQLError{Number: 1062})

		err := NewMySQLMembershipRepository(db).Create(context.Background(), m)
		assert.ErrorIs(t, err, vaultDomain.ErrAlreadyInVault)
	})
}

func TestMySQLMembershipRepository_ExistsForFile(t *testing.T) {
	fileID := uuid.Must(uuid.NewV7())

	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(fileID[:]).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewMySQLMembershipRepository(db).ExistsForFile(context.Background(), fileID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMySQLMembershipRepository_Delete(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	for _, tc := range []struct {
		name     string
		affected int64
	}{
		{name: "Deleted", affected: 1},
		{name: "AlreadyGone", affected: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectExec(`DELETE FROM vault_memberships WHERE id = \?`).
				WithArgs(id[:]).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			deleted, err := NewMySQLMembershipRepository(db).Delete(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tc.affected == 1, deleted)
		})
	}
}

func TestMySQLMembershipRepository_RecordAccess(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	at := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`SET access_count = access_count \+ 1`).
			WithArgs(at, id[:]).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewMySQLMembershipRepository(db).RecordAccess(context.Background(), id, at))
	})

	t.Run("Missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`SET access_count = access_count \+ 1`).
			WithArgs(at, id[:]).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewMySQLMembershipRepository(db).RecordAccess(context.Background(), id, at)
		assert.ErrorIs(t, err, vaultDomain.ErrMembershipNotFound)
	})
}
