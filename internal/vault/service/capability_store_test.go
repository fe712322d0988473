package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

func newMembership() *vaultDomain.Membership {
	return &vaultDomain.Membership{
		ID:      uuid.Must(uuid.NewV7()),
		FileID:  uuid.Must(uuid.NewV7()),
		OwnerID: uuid.Must(uuid.NewV7()),
	}
}

func TestMemoryCapabilityStore_SingleUse(t *testing.T) {
	store := NewMemoryCapabilityStore()
	membership := newMembership()

	capability, err := store.Issue(membership, time.Minute)
	require.NoError(t, err)
	assert.Len(t, capability.Token, 43)
	assert.Equal(t, membership.FileID, capability.FileID)

	redeemed, err := store.Redeem(capability.Token, membership.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, membership.ID, redeemed.MembershipID)

	_, err = store.Redeem(capability.Token, membership.OwnerID)
	assert.ErrorIs(t, err, vaultDomain.ErrCapabilityNotFound)
}

func TestMemoryCapabilityStore_WrongOwnerKeepsToken(t *testing.T) {
	store := NewMemoryCapabilityStore()
	membership := newMembership()

	capability, err := store.Issue(membership, time.Minute)
	require.NoError(t, err)

	_, err = store.Redeem(capability.Token, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, vaultDomain.ErrCapabilityNotFound)

	_, err = store.Redeem(capability.Token, membership.OwnerID)
	assert.NoError(t, err)
}

func TestMemoryCapabilityStore_Expiry(t *testing.T) {
	store := NewMemoryCapabilityStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	membership := newMembership()

	expiring, err := store.Issue(membership, time.Second)
	require.NoError(t, err)
	lasting, err := store.Issue(membership, time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)

	_, err = store.Redeem(expiring.Token, membership.OwnerID)
	assert.ErrorIs(t, err, vaultDomain.ErrCapabilityNotFound)

	assert.Equal(t, 0, store.Purge())
	store.Revoke(membership.ID)
	_, err = store.Redeem(lasting.Token, membership.OwnerID)
	assert.ErrorIs(t, err, vaultDomain.ErrCapabilityNotFound)
}

func TestMemoryCapabilityStore_Purge(t *testing.T) {
	store := NewMemoryCapabilityStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := store.Issue(newMembership(), time.Second)
		require.NoError(t, err)
	}
	now = now.Add(time.Minute)
	assert.Equal(t, 3, store.Purge())
}

func TestMemoryCapabilityStore_StartPurgeStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryCapabilityStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.StartPurge(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
}
