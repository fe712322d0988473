package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/filevault/internal/errors"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

const capabilityTokenBytes = 32

// CapabilityStore issues and redeems single-use vault capabilities.
type CapabilityStore interface {
	Issue(membership *vaultDomain.Membership, ttl time.Duration) (*vaultDomain.Capability, error)
	// Redeem consumes the token if it exists, has not expired and was issued to ownerID.
	Redeem(token string, ownerID uuid.UUID) (*vaultDomain.Capability, error)
	// Revoke drops every outstanding capability of a membership.
	Revoke(membershipID uuid.UUID)
}

// MemoryCapabilityStore keeps capabilities in process memory. Capabilities do not
// survive a restart and are not shared between instances.
type MemoryCapabilityStore struct {
	mu     sync.Mutex
	tokens map[string]*vaultDomain.Capability
	now    func() time.Time
}

// NewMemoryCapabilityStore creates an empty store.
func NewMemoryCapabilityStore() *MemoryCapabilityStore {
	return &MemoryCapabilityStore{
		tokens: make(map[string]*vaultDomain.Capability),
		now:    time.Now,
	}
}

func (s *MemoryCapabilityStore) Issue(
	membership *vaultDomain.Membership,
	ttl time.Duration,
) (*vaultDomain.Capability, error) {
	raw := make([]byte, capabilityTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate capability token")
	}

	capability := &vaultDomain.Capability{
		Token:        base64.RawURLEncoding.EncodeToString(raw),
		MembershipID: membership.ID,
		FileID:       membership.FileID,
		OwnerID:      membership.OwnerID,
		ExpiresAt:    s.now().UTC().Add(ttl),
	}

	s.mu.Lock()
	s.tokens[capability.Token] = capability
	s.mu.Unlock()

	copied := *capability
	return &copied, nil
}

func (s *MemoryCapabilityStore) Redeem(token string, ownerID uuid.UUID) (*vaultDomain.Capability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capability, ok := s.tokens[token]
	if !ok || capability.OwnerID != ownerID {
		return nil, vaultDomain.ErrCapabilityNotFound
	}
	delete(s.tokens, token)

	if !s.now().Before(capability.ExpiresAt) {
		return nil, vaultDomain.ErrCapabilityNotFound
	}
	return capability, nil
}

func (s *MemoryCapabilityStore) Revoke(membershipID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, capability := range s.tokens {
		if capability.MembershipID == membershipID {
			delete(s.tokens, token)
		}
	}
}

// Purge drops expired capabilities and returns how many were removed.
func (s *MemoryCapabilityStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, capability := range s.tokens {
		if !now.Before(capability.ExpiresAt) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}

// StartPurge calls Purge every interval until ctx is cancelled.
func (s *MemoryCapabilityStore) StartPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}
