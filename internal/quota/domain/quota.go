// Package domain defines vault storage quotas: the per-owner usage ledger row and
// the policy computing each principal's budget from role and department.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filevault/internal/errors"
)

var (
	// ErrQuotaExceeded indicates a vault promotion would exceed the owner's budget.
	ErrQuotaExceeded = errors.Wrap(errors.ErrQuotaExceeded, "vault quota exceeded")

	// ErrInvalidPolicy indicates a malformed quota policy configuration.
	ErrInvalidPolicy = errors.New("invalid quota policy")

	// ErrInvalidSize indicates a negative reservation or release.
	ErrInvalidSize = errors.Wrap(errors.ErrInvalidInput, "size must not be negative")
)

// Usage is the ledger row tracking vault bytes charged to an owner.
type Usage struct {
	OwnerID   uuid.UUID
	UsedBytes int64
	UpdatedAt time.Time
}

// Summary reports an owner's usage against their budget.
type Summary struct {
	OwnerID    uuid.UUID
	UsedBytes  int64
	LimitBytes int64
	Unlimited  bool
}

// Remaining returns the bytes still available, or -1 when the budget is unlimited.
func (s Summary) Remaining() int64 {
	if s.Unlimited {
		return -1
	}
	if s.UsedBytes >= s.LimitBytes {
		return 0
	}
	return s.LimitBytes - s.UsedBytes
}
