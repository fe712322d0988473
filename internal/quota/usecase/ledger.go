package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	"github.com/allisson/filevault/internal/metrics"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
)

type ledger struct {
	repo    UsageRepository
	policy  *quotaDomain.Policy
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewLedger creates a Ledger enforcing policy over repo.
func NewLedger(
	repo UsageRepository,
	policy *quotaDomain.Policy,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) Ledger {
	return &ledger{
		repo:    repo,
		policy:  policy,
		metrics: businessMetrics,
		logger:  logger,
	}
}

// Reserve performs an advisory check against the current usage, then increments
// atomically and re-checks the returned total. Concurrent reservations can both
// pass the advisory check; the loser sees the overshoot and fails so its
// transaction rolls back.
func (l *ledger) Reserve(ctx context.Context, principal *authDomain.Principal, size int64) error {
	if size < 0 {
		return quotaDomain.ErrInvalidSize
	}

	limit, unlimited := l.policy.LimitFor(principal)
	if !unlimited {
		usage, err := l.repo.Get(ctx, principal.UserID)
		if err != nil {
			return err
		}
		if usage.UsedBytes+size > limit {
			return quotaDomain.ErrQuotaExceeded
		}
	}

	total, err := l.repo.Increment(ctx, principal.UserID, size)
	if err != nil {
		return err
	}

	if !unlimited && total > limit {
		l.metrics.RecordOperation(ctx, "quota", "overshoot", "detected")
		l.logger.Warn("quota overshoot detected, rolling back reservation",
			slog.String("owner_id", principal.UserID.String()),
			slog.Int64("used_bytes", total),
			slog.Int64("limit_bytes", limit),
		)
		return quotaDomain.ErrQuotaExceeded
	}

	return nil
}

// Release returns size bytes to the owner's budget.
func (l *ledger) Release(ctx context.Context, ownerID uuid.UUID, size int64) error {
	if size < 0 {
		return quotaDomain.ErrInvalidSize
	}
	if size == 0 {
		return nil
	}
	return l.repo.Decrement(ctx, ownerID, size)
}

// Summary reports the principal's usage against their budget.
func (l *ledger) Summary(ctx context.Context, principal *authDomain.Principal) (*quotaDomain.Summary, error) {
	usage, err := l.repo.Get(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	limit, unlimited := l.policy.LimitFor(principal)
	return &quotaDomain.Summary{
		OwnerID:    principal.UserID,
		UsedBytes:  usage.UsedBytes,
		LimitBytes: limit,
		Unlimited:  unlimited,
	}, nil
}
