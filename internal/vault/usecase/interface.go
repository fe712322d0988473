// Package usecase implements the vault access controller: promotion of files into
// the vault, the PIN gate, removal and self-destruction.
package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

// MembershipRepository persists vault memberships.
type MembershipRepository interface {
	// Create inserts a membership; a second active membership for the same file
	// fails with ErrAlreadyInVault.
	Create(ctx context.Context, membership *vaultDomain.Membership) error
	Get(ctx context.Context, id uuid.UUID) (*vaultDomain.Membership, error)
	GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error)
	ExistsForFile(ctx context.Context, fileID uuid.UUID) (bool, error)
	// Delete removes the membership and reports whether it existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// RecordAccess increments the access counter and stamps the access time atomically.
	RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]*vaultDomain.Membership, error)
}

// FileService is the part of the files use case the vault depends on.
type FileService interface {
	Lookup(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error)
	OpenObject(ctx context.Context, file *filesDomain.StoredFile) (io.ReadCloser, error)
	MarkDeleted(ctx context.Context, id uuid.UUID) error
	RemoveObject(ctx context.Context, file *filesDomain.StoredFile) error
}

// QuotaLedger charges vault bytes to owners.
type QuotaLedger interface {
	Reserve(ctx context.Context, principal *authDomain.Principal, size int64) error
	Release(ctx context.Context, ownerID uuid.UUID, size int64) error
}

// PromoteInput holds promotion parameters. Pin is the plaintext PIN and is hashed
// before anything is stored.
type PromoteInput struct {
	FileID        uuid.UUID
	Pin           string
	SelfDestruct  bool
	DestructAfter *time.Time
}

// VaultUseCase defines vault operations.
type VaultUseCase interface {
	// Promote places a file the principal owns into the vault.
	Promote(ctx context.Context, principal *authDomain.Principal, input PromoteInput) (*vaultDomain.Membership, error)

	// Gate checks candidatePin and, on success, counts the access and issues a
	// single-use capability.
	Gate(
		ctx context.Context,
		principal *authDomain.Principal,
		membershipID uuid.UUID,
		candidatePin string,
	) (*vaultDomain.Capability, error)

	// Remove takes a file out of the vault and releases its quota. Removing an
	// unknown membership succeeds.
	Remove(ctx context.Context, principal *authDomain.Principal, membershipID uuid.UUID) error

	// Get returns a membership owned by the principal.
	Get(ctx context.Context, principal *authDomain.Principal, membershipID uuid.UUID) (*vaultDomain.Membership, error)

	// OpenCapability redeems a capability and returns the decrypted file content.
	// The caller must close the returned reader.
	OpenCapability(
		ctx context.Context,
		principal *authDomain.Principal,
		token string,
	) (io.ReadCloser, *filesDomain.StoredFile, error)

	// Destroy deletes a membership together with its file, releasing the quota.
	Destroy(ctx context.Context, membership *vaultDomain.Membership) error

	// GetByFileID returns the active membership of a file.
	GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error)

	// ListLapsed returns self-destructing memberships whose deadline passed at now.
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]*vaultDomain.Membership, error)
}
