package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	apperrors "github.com/allisson/filevault/internal/errors"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	"github.com/allisson/filevault/internal/metrics"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

// vaultUseCaseWithMetrics decorates VaultUseCase with metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (v *vaultUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, status string) {
	v.metrics.RecordOperation(ctx, "vault", operation, status)
	v.metrics.RecordDuration(ctx, "vault", operation, time.Since(start), status)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Promote records metrics for vault promotions.
func (v *vaultUseCaseWithMetrics) Promote(
	ctx context.Context,
	principal *authDomain.Principal,
	input PromoteInput,
) (*vaultDomain.Membership, error) {
	start := time.Now()
	membership, err := v.next.Promote(ctx, principal, input)

	status := statusOf(err)
	if apperrors.Is(err, apperrors.ErrQuotaExceeded) {
		status = "quota_exceeded"
	}
	v.record(ctx, "vault_promote", start, status)
	return membership, err
}

// Gate records metrics for gate checks. Wrong PINs are counted apart from other
// failures so brute-force attempts stand out.
func (v *vaultUseCaseWithMetrics) Gate(
	ctx context.Context,
	principal *authDomain.Principal,
	membershipID uuid.UUID,
	candidatePin string,
) (*vaultDomain.Capability, error) {
	start := time.Now()
	capability, err := v.next.Gate(ctx, principal, membershipID, candidatePin)

	status := statusOf(err)
	if apperrors.Is(err, vaultDomain.ErrInvalidSecret) {
		status = "denied"
	}
	v.record(ctx, "vault_gate", start, status)
	return capability, err
}

// Remove records metrics for vault removals.
func (v *vaultUseCaseWithMetrics) Remove(
	ctx context.Context,
	principal *authDomain.Principal,
	membershipID uuid.UUID,
) error {
	start := time.Now()
	err := v.next.Remove(ctx, principal, membershipID)
	v.record(ctx, "vault_remove", start, statusOf(err))
	return err
}

// Get records metrics for membership retrieval.
func (v *vaultUseCaseWithMetrics) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	membershipID uuid.UUID,
) (*vaultDomain.Membership, error) {
	start := time.Now()
	membership, err := v.next.Get(ctx, principal, membershipID)
	v.record(ctx, "vault_get", start, statusOf(err))
	return membership, err
}

// OpenCapability records metrics for capability redemption.
func (v *vaultUseCaseWithMetrics) OpenCapability(
	ctx context.Context,
	principal *authDomain.Principal,
	token string,
) (io.ReadCloser, *filesDomain.StoredFile, error) {
	start := time.Now()
	rc, file, err := v.next.OpenCapability(ctx, principal, token)
	v.record(ctx, "vault_open", start, statusOf(err))
	return rc, file, err
}

// Destroy records metrics for self-destruction and vaulted file expiry.
func (v *vaultUseCaseWithMetrics) Destroy(ctx context.Context, membership *vaultDomain.Membership) error {
	start := time.Now()
	err := v.next.Destroy(ctx, membership)
	v.record(ctx, "vault_destroy", start, statusOf(err))
	return err
}

func (v *vaultUseCaseWithMetrics) GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error) {
	return v.next.GetByFileID(ctx, fileID)
}

func (v *vaultUseCaseWithMetrics) ListLapsed(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*vaultDomain.Membership, error) {
	return v.next.ListLapsed(ctx, now, limit)
}
