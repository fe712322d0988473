package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
	activityUseCase "github.com/allisson/filevault/internal/activity/usecase"
	authDomain "github.com/allisson/filevault/internal/auth/domain"
	"github.com/allisson/filevault/internal/database"
	apperrors "github.com/allisson/filevault/internal/errors"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
	vaultService "github.com/allisson/filevault/internal/vault/service"
)

// Config holds vault settings.
type Config struct {
	CapabilityTTL time.Duration
}

type vaultUseCase struct {
	config       Config
	txManager    database.TxManager
	repo         MembershipRepository
	files        FileService
	ledger       QuotaLedger
	hasher       vaultService.PinHasher
	capabilities vaultService.CapabilityStore
	recorder     activityUseCase.Recorder
	logger       *slog.Logger
	// dummyHash is verified against when no membership is visible, so a miss
	// costs the same as a wrong PIN.
	dummyHash string
	now       func() time.Time
}

// NewVaultUseCase creates a new VaultUseCase.
func NewVaultUseCase(
	config Config,
	txManager database.TxManager,
	repo MembershipRepository,
	files FileService,
	ledger QuotaLedger,
	hasher vaultService.PinHasher,
	capabilities vaultService.CapabilityStore,
	recorder activityUseCase.Recorder,
	logger *slog.Logger,
) (VaultUseCase, error) {
	dummyHash, err := hasher.HashPin("000000")
	if err != nil {
		return nil, err
	}

	return &vaultUseCase{
		config:       config,
		txManager:    txManager,
		repo:         repo,
		files:        files,
		ledger:       ledger,
		hasher:       hasher,
		capabilities: capabilities,
		recorder:     recorder,
		logger:       logger,
		dummyHash:    dummyHash,
		now:          time.Now,
	}, nil
}

// Promote validates the request, hashes the PIN and then reserves quota and
// inserts the membership in one transaction.
func (v *vaultUseCase) Promote(
	ctx context.Context,
	principal *authDomain.Principal,
	input PromoteInput,
) (*vaultDomain.Membership, error) {
	if principal == nil {
		return nil, authDomain.ErrPrincipalMissing
	}
	if err := vaultDomain.ValidatePin(input.Pin); err != nil {
		return nil, err
	}

	now := v.now().UTC()
	if input.SelfDestruct {
		if input.DestructAfter == nil || !input.DestructAfter.After(now) {
			return nil, vaultDomain.ErrInvalidDestructAfter
		}
	} else if input.DestructAfter != nil {
		return nil, vaultDomain.ErrInvalidDestructAfter
	}

	file, err := v.files.Lookup(ctx, input.FileID)
	if err != nil {
		return nil, err
	}
	if file.IsDeleted {
		return nil, filesDomain.ErrFileNotFound
	}
	if !principal.Owns(file.OwnerID) {
		return nil, filesDomain.ErrNotFileOwner
	}

	pinHash, err := v.hasher.HashPin(input.Pin)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	var destructAfter *time.Time
	if input.DestructAfter != nil {
		t := input.DestructAfter.UTC()
		destructAfter = &t
	}

	membership := &vaultDomain.Membership{
		ID:            id,
		FileID:        file.ID,
		OwnerID:       file.OwnerID,
		PinHash:       pinHash,
		SelfDestruct:  input.SelfDestruct,
		DestructAfter: destructAfter,
		ReservedBytes: file.Size,
		CreatedAt:     now,
	}

	err = v.txManager.WithTx(ctx, func(ctx context.Context) error {
		exists, err := v.repo.ExistsForFile(ctx, file.ID)
		if err != nil {
			return err
		}
		if exists {
			return vaultDomain.ErrAlreadyInVault
		}
		if err := v.ledger.Reserve(ctx, principal, membership.ReservedBytes); err != nil {
			return err
		}
		return v.repo.Create(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	v.recorder.Record(ctx, activityUseCase.Entry{
		Action:       activityDomain.ActionVaultPromote,
		PrincipalID:  principal.UserID,
		FileID:       file.ID,
		MembershipID: &membership.ID,
		Metadata: map[string]any{
			"self_destruct":  membership.SelfDestruct,
			"reserved_bytes": membership.ReservedBytes,
		},
	})

	return membership, nil
}

// Gate never distinguishes a missing, foreign or lapsed membership from one
// another. A wrong PIN leaves the membership untouched.
func (v *vaultUseCase) Gate(
	ctx context.Context,
	principal *authDomain.Principal,
	membershipID uuid.UUID,
	candidatePin string,
) (*vaultDomain.Capability, error) {
	if principal == nil {
		return nil, authDomain.ErrPrincipalMissing
	}
	if err := vaultDomain.ValidatePin(candidatePin); err != nil {
		return nil, err
	}

	now := v.now().UTC()
	membership, err := v.repo.Get(ctx, membershipID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if membership == nil || !principal.Owns(membership.OwnerID) || membership.Lapsed(now) {
		v.hasher.VerifyPin(candidatePin, v.dummyHash)
		return nil, vaultDomain.ErrMembershipNotFound
	}

	if !v.hasher.VerifyPin(candidatePin, membership.PinHash) {
		v.recorder.Record(ctx, activityUseCase.Entry{
			Action:       activityDomain.ActionVaultGateDenied,
			PrincipalID:  principal.UserID,
			FileID:       membership.FileID,
			MembershipID: &membership.ID,
		})
		return nil, vaultDomain.ErrInvalidSecret
	}

	capability, err := v.capabilities.Issue(membership, v.config.CapabilityTTL)
	if err != nil {
		return nil, err
	}

	// Only a granted access is counted.
	if err := v.repo.RecordAccess(ctx, membership.ID, now); err != nil {
		v.capabilities.Revoke(membership.ID)
		return nil, err
	}

	v.recorder.Record(ctx, activityUseCase.Entry{
		Action:       activityDomain.ActionVaultGate,
		PrincipalID:  principal.UserID,
		FileID:       membership.FileID,
		MembershipID: &membership.ID,
	})

	return capability, nil
}

func (v *vaultUseCase) Remove(ctx context.Context, principal *authDomain.Principal, membershipID uuid.UUID) error {
	if principal == nil {
		return authDomain.ErrPrincipalMissing
	}

	membership, err := v.repo.Get(ctx, membershipID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if !principal.Owns(membership.OwnerID) {
		return vaultDomain.ErrNotMembershipOwner
	}

	removed := false
	err = v.txManager.WithTx(ctx, func(ctx context.Context) error {
		deleted, err := v.repo.Delete(ctx, membership.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		removed = true
		return v.ledger.Release(ctx, membership.OwnerID, membership.ReservedBytes)
	})
	if err != nil {
		return err
	}

	v.capabilities.Revoke(membership.ID)

	if removed {
		v.recorder.Record(ctx, activityUseCase.Entry{
			Action:       activityDomain.ActionVaultRemove,
			PrincipalID:  principal.UserID,
			FileID:       membership.FileID,
			MembershipID: &membership.ID,
		})
	}
	return nil
}

func (v *vaultUseCase) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	membershipID uuid.UUID,
) (*vaultDomain.Membership, error) {
	if principal == nil {
		return nil, authDomain.ErrPrincipalMissing
	}

	membership, err := v.repo.Get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if !principal.Owns(membership.OwnerID) {
		return nil, vaultDomain.ErrMembershipNotFound
	}
	return membership, nil
}

func (v *vaultUseCase) OpenCapability(
	ctx context.Context,
	principal *authDomain.Principal,
	token string,
) (io.ReadCloser, *filesDomain.StoredFile, error) {
	if principal == nil {
		return nil, nil, authDomain.ErrPrincipalMissing
	}

	capability, err := v.capabilities.Redeem(token, principal.UserID)
	if err != nil {
		return nil, nil, err
	}

	membership, err := v.repo.Get(ctx, capability.MembershipID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, vaultDomain.ErrCapabilityNotFound
		}
		return nil, nil, err
	}
	if membership.Lapsed(v.now()) {
		return nil, nil, vaultDomain.ErrCapabilityNotFound
	}

	file, err := v.files.Lookup(ctx, membership.FileID)
	if err != nil {
		return nil, nil, err
	}
	if file.IsDeleted {
		return nil, nil, filesDomain.ErrFileNotFound
	}

	rc, err := v.files.OpenObject(ctx, file)
	if err != nil {
		return nil, nil, err
	}

	v.recorder.Record(ctx, activityUseCase.Entry{
		Action:       activityDomain.ActionFileDownload,
		PrincipalID:  principal.UserID,
		FileID:       file.ID,
		MembershipID: &membership.ID,
	})

	return rc, file, nil
}

// Destroy removes the encrypted object first and then commits the membership
// removal, quota release and file deletion together. A failed object removal
// leaves the membership in place so the next sweep retries it.
func (v *vaultUseCase) Destroy(ctx context.Context, membership *vaultDomain.Membership) error {
	v.capabilities.Revoke(membership.ID)

	file, err := v.files.Lookup(ctx, membership.FileID)
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := v.files.RemoveObject(ctx, file); err != nil {
			return err
		}
	}

	removed := false
	err = v.txManager.WithTx(ctx, func(ctx context.Context) error {
		deleted, err := v.repo.Delete(ctx, membership.ID)
		if err != nil {
			return err
		}
		if deleted {
			removed = true
			if err := v.ledger.Release(ctx, membership.OwnerID, membership.ReservedBytes); err != nil {
				return err
			}
		}
		return v.files.MarkDeleted(ctx, membership.FileID)
	})
	if err != nil {
		return err
	}

	if removed {
		v.recorder.Record(ctx, activityUseCase.Entry{
			Action:       activityDomain.ActionVaultExpire,
			FileID:       membership.FileID,
			MembershipID: &membership.ID,
			Metadata:     map[string]any{"access_count": membership.AccessCount},
		})
	}
	return nil
}

func (v *vaultUseCase) GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error) {
	return v.repo.GetByFileID(ctx, fileID)
}

func (v *vaultUseCase) ListLapsed(ctx context.Context, now time.Time, limit int) ([]*vaultDomain.Membership, error) {
	return v.repo.ListLapsed(ctx, now, limit)
}
