package usecase

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	"github.com/allisson/filevault/internal/database"
	"github.com/allisson/filevault/internal/metrics"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
	quotaBolt "github.com/allisson/filevault/internal/quota/repository/bolt"
)

const (
	mb = int64(1_000_000)
	gb = int64(1_000_000_000)
)

type recordingMetrics struct {
	mu         sync.Mutex
	operations []string
}

func (r *recordingMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, domain+"/"+operation)
}

func (r *recordingMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func newTestLedger(t *testing.T) (Ledger, database.TxManager) {
	t.Helper()
	db, err := database.OpenBolt(filepath.Join(t.TempDir(), "quota.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	policy, err := quotaDomain.ParsePolicy("1GB", "manager:10GB", "", "admin")
	require.NoError(t, err)

	return NewLedger(
		quotaBolt.NewBoltUsageRepository(db),
		policy,
		metrics.NewNoOpBusinessMetrics(),
		slog.Default(),
	), database.NewBoltTxManager(db)
}

func employee() *authDomain.Principal {
	return &authDomain.Principal{UserID: uuid.Must(uuid.NewV7()), Role: authDomain.RoleEmployee}
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Quota_RejectsOverBudgetAcceptsWithin", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		principal := employee()

		require.NoError(t, ledger.Reserve(ctx, principal, 900*mb))

		err := ledger.Reserve(ctx, principal, 200*mb)
		assert.ErrorIs(t, err, quotaDomain.ErrQuotaExceeded)

		summary, err := ledger.Summary(ctx, principal)
		require.NoError(t, err)
		assert.Equal(t, 900*mb, summary.UsedBytes, "rejected reservation must not change usage")

		require.NoError(t, ledger.Reserve(ctx, principal, 50*mb))

		summary, err = ledger.Summary(ctx, principal)
		require.NoError(t, err)
		assert.Equal(t, 950*mb, summary.UsedBytes)
		assert.Equal(t, gb, summary.LimitBytes)
	})

	t.Run("Quota_ExactlyAtLimit", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		principal := employee()

		require.NoError(t, ledger.Reserve(ctx, principal, gb))
		assert.ErrorIs(t, ledger.Reserve(ctx, principal, 1), quotaDomain.ErrQuotaExceeded)
	})

	t.Run("Quota_UnlimitedRole", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		principal := &authDomain.Principal{UserID: uuid.Must(uuid.NewV7()), Role: authDomain.RoleAdmin}

		require.NoError(t, ledger.Reserve(ctx, principal, 50*gb))

		summary, err := ledger.Summary(ctx, principal)
		require.NoError(t, err)
		assert.True(t, summary.Unlimited)
		assert.Equal(t, 50*gb, summary.UsedBytes)
	})

	t.Run("Error_NegativeSize", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		assert.ErrorIs(t, ledger.Reserve(ctx, employee(), -1), quotaDomain.ErrInvalidSize)
	})

	t.Run("Rollback_WithTransaction", func(t *testing.T) {
		ledger, txManager := newTestLedger(t)
		principal := employee()

		err := txManager.WithTx(ctx, func(txCtx context.Context) error {
			if err := ledger.Reserve(txCtx, principal, 300*mb); err != nil {
				return err
			}
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		summary, err := ledger.Summary(ctx, principal)
		require.NoError(t, err)
		assert.Zero(t, summary.UsedBytes)
	})
}

// staleRepository reports a stale usage figure on Get to emulate a concurrent
// reservation landing between the advisory check and the increment.
type staleRepository struct {
	used int64
}

func (s *staleRepository) Get(ctx context.Context, ownerID uuid.UUID) (*quotaDomain.Usage, error) {
	return &quotaDomain.Usage{OwnerID: ownerID}, nil
}

func (s *staleRepository) Increment(ctx context.Context, ownerID uuid.UUID, delta int64) (int64, error) {
	s.used += delta
	return s.used, nil
}

func (s *staleRepository) Decrement(ctx context.Context, ownerID uuid.UUID, delta int64) error {
	s.used -= delta
	return nil
}

func TestLedger_Reserve_Overshoot(t *testing.T) {
	ctx := context.Background()
	policy, err := quotaDomain.ParsePolicy("1GB", "", "", "")
	require.NoError(t, err)

	repo := &staleRepository{used: 900 * mb}
	recorder := &recordingMetrics{}
	ledger := NewLedger(repo, policy, recorder, slog.Default())

	err = ledger.Reserve(ctx, employee(), 200*mb)
	assert.ErrorIs(t, err, quotaDomain.ErrQuotaExceeded)
	assert.Equal(t, []string{"quota/overshoot"}, recorder.operations)
}

func TestLedger_Release(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)
	principal := employee()

	require.NoError(t, ledger.Reserve(ctx, principal, 400*mb))
	require.NoError(t, ledger.Release(ctx, principal.UserID, 150*mb))

	summary, err := ledger.Summary(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, 250*mb, summary.UsedBytes)

	require.NoError(t, ledger.Release(ctx, principal.UserID, gb))
	summary, err = ledger.Summary(ctx, principal)
	require.NoError(t, err)
	assert.Zero(t, summary.UsedBytes, "usage never drops below zero")

	assert.NoError(t, ledger.Release(ctx, principal.UserID, 0))
	assert.ErrorIs(t, ledger.Release(ctx, principal.UserID, -5), quotaDomain.ErrInvalidSize)
}

func TestLedger_TeamMembersHaveSeparateBudgets(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	teamID := uuid.Must(uuid.NewV7())
	alice := employee()
	alice.TeamID = &teamID
	bob := employee()
	bob.TeamID = &teamID

	require.NoError(t, ledger.Reserve(ctx, alice, 900*mb))
	assert.ErrorIs(t, ledger.Reserve(ctx, alice, 200*mb), quotaDomain.ErrQuotaExceeded)

	// A teammate's usage does not count against bob.
	require.NoError(t, ledger.Reserve(ctx, bob, 900*mb))

	summary, err := ledger.Summary(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, bob.UserID, summary.OwnerID)
	assert.Equal(t, 900*mb, summary.UsedBytes)
	assert.Equal(t, gb, summary.LimitBytes)
}
