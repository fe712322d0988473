// Package domain defines stored files: the metadata record of an uploaded document
// whose content lives encrypted in the object store.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filevault/internal/errors"
)

var (
	// ErrFileNotFound indicates the file does not exist or was deleted.
	ErrFileNotFound = errors.Wrap(errors.ErrNotFound, "file not found")

	// ErrNotFileOwner indicates the principal does not own the file.
	ErrNotFileOwner = errors.Wrap(errors.ErrForbidden, "file belongs to another user")

	// ErrFileVaulted indicates the file is in the vault and must be accessed through the PIN gate.
	ErrFileVaulted = errors.Wrap(errors.ErrConflict, "file is in the vault")

	// ErrInvalidFileName indicates an empty or unusable original file name.
	ErrInvalidFileName = errors.Wrap(errors.ErrInvalidInput, "invalid file name")

	// ErrInvalidExpiry indicates an expiration that is not in the future.
	ErrInvalidExpiry = errors.Wrap(errors.ErrInvalidInput, "expires_at must be in the future")

	// ErrFileTooLarge indicates the upload exceeded the configured maximum size.
	ErrFileTooLarge = errors.Wrap(errors.ErrInvalidInput, "file exceeds maximum upload size")
)

// StoredFile is the metadata of one encrypted document.
type StoredFile struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	TeamID       *uuid.UUID
	OriginalName string
	// StoredName is the object key of the encrypted content.
	StoredName  string
	Size        int64
	ContentType string
	// Nonce duplicates the prefix of the stored object.
	Nonce []byte
	// DigestHex is the SHA-256 of the plaintext, computed once at upload.
	DigestHex  string
	UploadedAt time.Time
	ExpiresAt  *time.Time
	IsDeleted  bool
}

// Expired reports whether the file's expiration has passed at now.
func (f *StoredFile) Expired(now time.Time) bool {
	return f.ExpiresAt != nil && !now.Before(*f.ExpiresAt)
}
