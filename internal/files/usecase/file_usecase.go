package usecase

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
	activityUseCase "github.com/allisson/filevault/internal/activity/usecase"
	authDomain "github.com/allisson/filevault/internal/auth/domain"
	cryptoService "github.com/allisson/filevault/internal/crypto/service"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
)

const defaultContentType = "application/octet-stream"

// Config holds file use case limits.
type Config struct {
	MaxUploadBytes int64
}

type fileUseCase struct {
	config   Config
	repo     FileRepository
	objects  ObjectStore
	vault    VaultLookup
	cipher   cryptoService.StreamCipher
	verifier cryptoService.IntegrityVerifier
	recorder activityUseCase.Recorder
	logger   *slog.Logger
}

// NewFileUseCase creates a new FileUseCase.
func NewFileUseCase(
	config Config,
	repo FileRepository,
	objects ObjectStore,
	vault VaultLookup,
	cipher cryptoService.StreamCipher,
	verifier cryptoService.IntegrityVerifier,
	recorder activityUseCase.Recorder,
	logger *slog.Logger,
) FileUseCase {
	return &fileUseCase{
		config:   config,
		repo:     repo,
		objects:  objects,
		vault:    vault,
		cipher:   cipher,
		verifier: verifier,
		recorder: recorder,
		logger:   logger,
	}
}

// Upload hashes and encrypts the body in a single pass. The object is only
// committed once the whole body was consumed within the size limit, and it is
// removed again if the metadata insert fails.
func (f *fileUseCase) Upload(
	ctx context.Context,
	principal *authDomain.Principal,
	input UploadInput,
) (*filesDomain.StoredFile, error) {
	if principal == nil {
		return nil, authDomain.ErrPrincipalMissing
	}

	name := sanitizeFileName(input.Name)
	if name == "" {
		return nil, filesDomain.ErrInvalidFileName
	}

	now := time.Now().UTC()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, filesDomain.ErrInvalidExpiry
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	storedName := id.String()

	w, err := f.objects.NewWriter(ctx, storedName)
	if err != nil {
		return nil, err
	}

	body := input.Body
	if f.config.MaxUploadBytes > 0 {
		body = io.LimitReader(body, f.config.MaxUploadBytes+1)
	}
	digest := f.verifier.NewDigestReader(body)

	nonce, size, err := f.cipher.Encrypt(ctx, w, digest)
	if err != nil {
		w.Abort()
		return nil, err
	}
	if f.config.MaxUploadBytes > 0 && size > f.config.MaxUploadBytes {
		w.Abort()
		return nil, filesDomain.ErrFileTooLarge
	}
	if err := w.Commit(); err != nil {
		return nil, err
	}

	file := &filesDomain.StoredFile{
		ID:           id,
		OwnerID:      principal.UserID,
		TeamID:       principal.TeamID,
		OriginalName: name,
		StoredName:   storedName,
		Size:         size,
		ContentType:  contentType,
		Nonce:        nonce,
		DigestHex:    digest.Sum(),
		UploadedAt:   now,
		ExpiresAt:    input.ExpiresAt,
	}

	if err := f.repo.Create(ctx, file); err != nil {
		if delErr := f.objects.Delete(context.WithoutCancel(ctx), storedName); delErr != nil {
			f.logger.Error("failed to remove object after metadata insert failure",
				slog.String("file_id", id.String()),
				slog.Any("error", delErr),
			)
		}
		return nil, err
	}

	f.recorder.Record(ctx, activityUseCase.Entry{
		Action:      activityDomain.ActionFileUpload,
		PrincipalID: principal.UserID,
		FileID:      file.ID,
		Metadata:    map[string]any{"size": file.Size, "content_type": file.ContentType},
	})

	return file, nil
}

func (f *fileUseCase) List(
	ctx context.Context,
	principal *authDomain.Principal,
	offset, limit int,
) ([]*filesDomain.StoredFile, error) {
	if principal == nil {
		return nil, authDomain.ErrPrincipalMissing
	}
	return f.repo.ListByOwner(ctx, principal.UserID, offset, limit)
}

func (f *fileUseCase) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*filesDomain.StoredFile, error) {
	return f.owned(ctx, principal, id)
}

func (f *fileUseCase) Open(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (io.ReadCloser, *filesDomain.StoredFile, error) {
	file, err := f.owned(ctx, principal, id)
	if err != nil {
		return nil, nil, err
	}

	vaulted, err := f.vault.ExistsForFile(ctx, file.ID)
	if err != nil {
		return nil, nil, err
	}
	if vaulted {
		return nil, nil, filesDomain.ErrFileVaulted
	}

	rc, err := f.OpenObject(ctx, file)
	if err != nil {
		return nil, nil, err
	}

	f.recorder.Record(ctx, activityUseCase.Entry{
		Action:      activityDomain.ActionFileDownload,
		PrincipalID: principal.UserID,
		FileID:      file.ID,
	})

	return rc, file, nil
}

func (f *fileUseCase) Verify(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) (bool, error) {
	file, err := f.owned(ctx, principal, id)
	if err != nil {
		return false, err
	}

	valid, err := f.VerifyObject(ctx, file)
	if err != nil {
		return false, err
	}

	f.recorder.Record(ctx, activityUseCase.Entry{
		Action:      activityDomain.ActionFileVerify,
		PrincipalID: principal.UserID,
		FileID:      file.ID,
		Metadata:    map[string]any{"valid": valid},
	})

	return valid, nil
}

func (f *fileUseCase) Delete(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) error {
	file, err := f.owned(ctx, principal, id)
	if err != nil {
		return err
	}

	vaulted, err := f.vault.ExistsForFile(ctx, file.ID)
	if err != nil {
		return err
	}
	if vaulted {
		return filesDomain.ErrFileVaulted
	}

	// Object first: a failed removal keeps the file live and the delete retryable.
	if err := f.RemoveObject(ctx, file); err != nil {
		return err
	}
	if err := f.MarkDeleted(ctx, file.ID); err != nil {
		return err
	}

	f.recorder.Record(ctx, activityUseCase.Entry{
		Action:      activityDomain.ActionFileDelete,
		PrincipalID: principal.UserID,
		FileID:      file.ID,
	})

	return nil
}

func (f *fileUseCase) Lookup(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error) {
	return f.repo.Get(ctx, id)
}

func (f *fileUseCase) OpenObject(ctx context.Context, file *filesDomain.StoredFile) (io.ReadCloser, error) {
	obj, err := f.objects.NewReader(ctx, file.StoredName)
	if err != nil {
		return nil, err
	}

	plaintext, err := f.cipher.NewDecryptReader(ctx, obj)
	if err != nil {
		_ = obj.Close()
		return nil, err
	}

	return &decryptedObject{Reader: plaintext, Closer: obj}, nil
}

func (f *fileUseCase) VerifyObject(ctx context.Context, file *filesDomain.StoredFile) (bool, error) {
	rc, err := f.OpenObject(ctx, file)
	if err != nil {
		return false, err
	}
	defer rc.Close() //nolint:errcheck

	return f.verifier.Verify(ctx, rc, file.DigestHex)
}

func (f *fileUseCase) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	_, err := f.repo.MarkDeleted(ctx, id)
	return err
}

func (f *fileUseCase) RemoveObject(ctx context.Context, file *filesDomain.StoredFile) error {
	return f.objects.Delete(ctx, file.StoredName)
}

func (f *fileUseCase) ListExpired(ctx context.Context, now time.Time, limit int) ([]*filesDomain.StoredFile, error) {
	return f.repo.ListExpired(ctx, now, limit)
}

// Expire removes the object before marking the row deleted. A failed removal
// leaves the file live, so the next sweep lists it again.
func (f *fileUseCase) Expire(ctx context.Context, file *filesDomain.StoredFile) error {
	if err := f.RemoveObject(ctx, file); err != nil {
		return err
	}
	if err := f.MarkDeleted(ctx, file.ID); err != nil {
		return err
	}

	f.recorder.Record(ctx, activityUseCase.Entry{
		Action: activityDomain.ActionFileExpire,
		FileID: file.ID,
	})
	return nil
}

// owned loads a live file and checks the principal owns it.
func (f *fileUseCase) owned(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*filesDomain.StoredFile, error) {
	if principal == nil {
		return nil, authDomain.ErrPrincipalMissing
	}

	file, err := f.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.IsDeleted {
		return nil, filesDomain.ErrFileNotFound
	}
	if !principal.Owns(file.OwnerID) {
		return nil, filesDomain.ErrNotFileOwner
	}
	return file, nil
}

// decryptedObject closes the underlying object when the plaintext reader is done.
type decryptedObject struct {
	io.Reader
	io.Closer
}

// sanitizeFileName keeps the base name of a client supplied path.
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
