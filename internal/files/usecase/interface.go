// Package usecase implements the stored file lifecycle: encrypted upload, owner
// reads, integrity verification, deletion and expiry.
package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	"github.com/allisson/filevault/internal/storage"
)

// FileRepository persists file metadata.
type FileRepository interface {
	Create(ctx context.Context, file *filesDomain.StoredFile) error
	// Get returns the file even when it is marked deleted.
	Get(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*filesDomain.StoredFile, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*filesDomain.StoredFile, error)
	// MarkDeleted flips IsDeleted once and reports whether this call did it.
	MarkDeleted(ctx context.Context, id uuid.UUID) (bool, error)
}

// ObjectStore holds the encrypted objects.
type ObjectStore interface {
	NewWriter(ctx context.Context, key string) (*storage.ObjectWriter, error)
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// VaultLookup reports whether a file has an active vault membership.
type VaultLookup interface {
	ExistsForFile(ctx context.Context, fileID uuid.UUID) (bool, error)
}

// UploadInput describes one upload. Body is read exactly once.
type UploadInput struct {
	Name        string
	ContentType string
	Body        io.Reader
	ExpiresAt   *time.Time
}

// FileUseCase defines the file operations.
type FileUseCase interface {
	// Upload encrypts Body into the object store and records its metadata.
	Upload(ctx context.Context, principal *authDomain.Principal, input UploadInput) (*filesDomain.StoredFile, error)

	// List returns the principal's live files, newest last.
	List(ctx context.Context, principal *authDomain.Principal, offset, limit int) ([]*filesDomain.StoredFile, error)

	// Get returns a live file owned by the principal.
	Get(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) (*filesDomain.StoredFile, error)

	// Open returns the decrypted content of a live, non-vaulted file owned by the principal.
	// The caller must close the returned reader.
	Open(
		ctx context.Context,
		principal *authDomain.Principal,
		id uuid.UUID,
	) (io.ReadCloser, *filesDomain.StoredFile, error)

	// Verify decrypts the file and compares its digest with the one recorded at upload.
	Verify(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) (bool, error)

	// Delete marks a non-vaulted file deleted and removes its object.
	Delete(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) error

	// Lookup returns a file by id without ownership checks.
	Lookup(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error)

	// OpenObject returns the decrypted content of file without ownership checks.
	OpenObject(ctx context.Context, file *filesDomain.StoredFile) (io.ReadCloser, error)

	// VerifyObject checks the integrity of file without ownership checks.
	VerifyObject(ctx context.Context, file *filesDomain.StoredFile) (bool, error)

	// MarkDeleted marks the file deleted. Already deleted files are left as is.
	MarkDeleted(ctx context.Context, id uuid.UUID) error

	// RemoveObject deletes the encrypted object. A missing object counts as removed.
	RemoveObject(ctx context.Context, file *filesDomain.StoredFile) error

	// ListExpired returns live files whose expiration has passed at now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*filesDomain.StoredFile, error)

	// Expire marks an expired file deleted and removes its object.
	Expire(ctx context.Context, file *filesDomain.StoredFile) error
}
