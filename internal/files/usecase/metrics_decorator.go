package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	"github.com/allisson/filevault/internal/metrics"
)

// fileUseCaseWithMetrics decorates FileUseCase with metrics instrumentation.
type fileUseCaseWithMetrics struct {
	next    FileUseCase
	metrics metrics.BusinessMetrics
}

// NewFileUseCaseWithMetrics wraps a FileUseCase with metrics recording.
func NewFileUseCaseWithMetrics(useCase FileUseCase, m metrics.BusinessMetrics) FileUseCase {
	return &fileUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (f *fileUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	f.metrics.RecordOperation(ctx, "files", operation, status)
	f.metrics.RecordDuration(ctx, "files", operation, time.Since(start), status)
}

// Upload records metrics for file uploads.
func (f *fileUseCaseWithMetrics) Upload(
	ctx context.Context,
	principal *authDomain.Principal,
	input UploadInput,
) (*filesDomain.StoredFile, error) {
	start := time.Now()
	file, err := f.next.Upload(ctx, principal, input)
	f.record(ctx, "file_upload", start, err)
	return file, err
}

// List records metrics for file listing.
func (f *fileUseCaseWithMetrics) List(
	ctx context.Context,
	principal *authDomain.Principal,
	offset, limit int,
) ([]*filesDomain.StoredFile, error) {
	start := time.Now()
	files, err := f.next.List(ctx, principal, offset, limit)
	f.record(ctx, "file_list", start, err)
	return files, err
}

// Get records metrics for file metadata retrieval.
func (f *fileUseCaseWithMetrics) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*filesDomain.StoredFile, error) {
	start := time.Now()
	file, err := f.next.Get(ctx, principal, id)
	f.record(ctx, "file_get", start, err)
	return file, err
}

// Open records metrics for file downloads. Only opening the stream is timed.
func (f *fileUseCaseWithMetrics) Open(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (io.ReadCloser, *filesDomain.StoredFile, error) {
	start := time.Now()
	rc, file, err := f.next.Open(ctx, principal, id)
	f.record(ctx, "file_download", start, err)
	return rc, file, err
}

// Verify records metrics for integrity checks.
func (f *fileUseCaseWithMetrics) Verify(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (bool, error) {
	start := time.Now()
	valid, err := f.next.Verify(ctx, principal, id)
	f.record(ctx, "file_verify", start, err)
	if err == nil && !valid {
		f.metrics.RecordOperation(ctx, "files", "integrity_mismatch", "detected")
	}
	return valid, err
}

// Delete records metrics for file deletion.
func (f *fileUseCaseWithMetrics) Delete(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) error {
	start := time.Now()
	err := f.next.Delete(ctx, principal, id)
	f.record(ctx, "file_delete", start, err)
	return err
}

func (f *fileUseCaseWithMetrics) Lookup(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error) {
	return f.next.Lookup(ctx, id)
}

func (f *fileUseCaseWithMetrics) OpenObject(ctx context.Context, file *filesDomain.StoredFile) (io.ReadCloser, error) {
	return f.next.OpenObject(ctx, file)
}

// VerifyObject records metrics for unchecked integrity checks.
func (f *fileUseCaseWithMetrics) VerifyObject(ctx context.Context, file *filesDomain.StoredFile) (bool, error) {
	start := time.Now()
	valid, err := f.next.VerifyObject(ctx, file)
	f.record(ctx, "file_verify_object", start, err)
	return valid, err
}

func (f *fileUseCaseWithMetrics) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	return f.next.MarkDeleted(ctx, id)
}

func (f *fileUseCaseWithMetrics) RemoveObject(ctx context.Context, file *filesDomain.StoredFile) error {
	return f.next.RemoveObject(ctx, file)
}

func (f *fileUseCaseWithMetrics) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*filesDomain.StoredFile, error) {
	return f.next.ListExpired(ctx, now, limit)
}

// Expire records metrics for sweeper expirations.
func (f *fileUseCaseWithMetrics) Expire(ctx context.Context, file *filesDomain.StoredFile) error {
	start := time.Now()
	err := f.next.Expire(ctx, file)
	f.record(ctx, "file_expire", start, err)
	return err
}
