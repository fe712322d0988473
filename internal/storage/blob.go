// Package storage keeps encrypted objects in a gocloud.dev/blob bucket. The bucket
// URL selects the backend: file:// for local disks, s3:// for S3 compatible stores
// and mem:// for tests.
package storage

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/filevault/internal/errors"

	// Register blob drivers
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// ObjectContentType is the content type recorded for every encrypted object.
const ObjectContentType = "application/octet-stream"

var (
	// ErrObjectNotFound indicates the encrypted object backing a file is missing.
	ErrObjectNotFound = apperrors.Wrap(apperrors.ErrNotFound, "object not found")

	// ErrObjectUnreadable indicates the bucket failed while serving an object.
	ErrObjectUnreadable = apperrors.Wrap(apperrors.ErrUnavailable, "object unreadable")

	// ErrObjectUnwritable indicates the bucket failed while storing an object.
	ErrObjectUnwritable = apperrors.Wrap(apperrors.ErrUnavailable, "object unwritable")
)

// BlobStore reads, writes and removes encrypted objects by key.
type BlobStore struct {
	bucket *blob.Bucket
}

// OpenBlobStore opens the bucket at url.
func OpenBlobStore(ctx context.Context, url string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}
	return &BlobStore{bucket: bucket}, nil
}

// NewBlobStore wraps an already opened bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// ObjectWriter streams one object into the bucket. Either Commit or Abort must be
// called; an aborted object is never visible in the bucket.
type ObjectWriter struct {
	w      *blob.Writer
	cancel context.CancelFunc
	done   bool
}

// NewWriter starts writing the object at key.
func (s *BlobStore) NewWriter(ctx context.Context, key string) (*ObjectWriter, error) {
	writeCtx, cancel := context.WithCancel(ctx)
	w, err := s.bucket.NewWriter(writeCtx, key, &blob.WriterOptions{ContentType: ObjectContentType})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrObjectUnwritable, err)
	}
	return &ObjectWriter{w: w, cancel: cancel}, nil
}

func (o *ObjectWriter) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// Commit flushes the object and makes it visible.
func (o *ObjectWriter) Commit() error {
	if o.done {
		return nil
	}
	o.done = true
	defer o.cancel()

	if err := o.w.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrObjectUnwritable, err)
	}
	return nil
}

// Abort discards the object. Calling Abort after Commit is a no-op.
func (o *ObjectWriter) Abort() {
	if o.done {
		return
	}
	o.done = true
	o.cancel()
	_ = o.w.Close()
}

// NewReader opens the object at key for reading.
func (s *BlobStore) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrObjectUnreadable, err)
	}
	return r, nil
}

// Delete removes the object at key. A missing object counts as removed.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrObjectUnwritable, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *BlobStore) Ping(ctx context.Context) error {
	if _, err := s.bucket.IsAccessible(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrObjectUnreadable, err)
	}
	return nil
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
