// Package usecase implements the vault quota ledger.
package usecase

import (
	"context"

	"github.com/google/uuid"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
)

// UsageRepository persists per-owner usage. Increment and Decrement must be single
// atomic statements.
type UsageRepository interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*quotaDomain.Usage, error)
	// Increment adds delta to the owner's usage, creating the row if needed, and
	// returns the new total.
	Increment(ctx context.Context, ownerID uuid.UUID, delta int64) (int64, error)
	// Decrement subtracts delta from the owner's usage without going below zero.
	Decrement(ctx context.Context, ownerID uuid.UUID, delta int64) error
}

// Ledger charges and releases vault bytes against each owner's budget.
type Ledger interface {
	// Reserve charges size bytes to the principal. It must run inside the caller's
	// transaction so a rejected reservation rolls back with it.
	Reserve(ctx context.Context, principal *authDomain.Principal, size int64) error
	// Release returns size bytes to ownerID's budget.
	Release(ctx context.Context, ownerID uuid.UUID, size int64) error
	// Summary reports the principal's usage against their budget.
	Summary(ctx context.Context, principal *authDomain.Principal) (*quotaDomain.Summary, error)
}
