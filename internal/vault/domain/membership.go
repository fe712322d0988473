// Package domain defines vault memberships: the PIN-gated, optionally
// self-destructing envelope a stored file can be promoted into.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PinLength is the exact number of ASCII digits in a vault PIN.
const PinLength = 6

// Membership places one file in the vault. PinHash is an argon2id PHC string;
// the PIN itself is never stored.
type Membership struct {
	ID             uuid.UUID
	FileID         uuid.UUID
	OwnerID        uuid.UUID
	PinHash        string
	AccessCount    int64
	LastAccessedAt *time.Time
	SelfDestruct   bool
	DestructAfter  *time.Time
	// ReservedBytes is what promotion charged to the owner's quota.
	ReservedBytes int64
	CreatedAt     time.Time
}

// Lapsed reports whether a self-destructing membership has reached its deadline.
func (m *Membership) Lapsed(now time.Time) bool {
	return m.SelfDestruct && m.DestructAfter != nil && !now.Before(*m.DestructAfter)
}

// ValidatePin checks that pin is exactly six ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) != PinLength {
		return ErrInvalidPinFormat
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPinFormat
		}
	}
	return nil
}

// Capability is a short-lived, single-use grant issued by a successful gate check.
type Capability struct {
	Token        string
	MembershipID uuid.UUID
	FileID       uuid.UUID
	OwnerID      uuid.UUID
	ExpiresAt    time.Time
}
