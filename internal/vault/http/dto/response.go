package dto

import (
	"time"

	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

// MembershipResponse represents a vault membership in API responses. The PIN
// hash is never exposed.
type MembershipResponse struct {
	ID             string     `json:"id"`
	FileID         string     `json:"file_id"`
	SelfDestruct   bool       `json:"self_destruct"`
	DestructAfter  *time.Time `json:"destruct_after,omitempty"`
	AccessCount    int64      `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MapMembershipToResponse converts a domain membership to an API response.
func MapMembershipToResponse(m *vaultDomain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:             m.ID.String(),
		FileID:         m.FileID.String(),
		SelfDestruct:   m.SelfDestruct,
		DestructAfter:  m.DestructAfter,
		AccessCount:    m.AccessCount,
		LastAccessedAt: m.LastAccessedAt,
		CreatedAt:      m.CreatedAt,
	}
}

// CapabilityResponse carries a single-use download capability.
type CapabilityResponse struct {
	Capability string    `json:"capability"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// MapCapabilityToResponse converts a domain capability to an API response.
func MapCapabilityToResponse(c *vaultDomain.Capability) CapabilityResponse {
	return CapabilityResponse{
		Capability: c.Token,
		ExpiresAt:  c.ExpiresAt,
	}
}
