package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"io"

	cryptoDomain "github.com/allisson/filevault/internal/crypto/domain"
)

type sha256Verifier struct{}

// NewIntegrityVerifier returns a SHA-256 IntegrityVerifier.
func NewIntegrityVerifier() IntegrityVerifier {
	return &sha256Verifier{}
}

// Digest hashes r in a single pass and returns the lowercase hex digest.
func (v *sha256Verifier) Digest(ctx context.Context, r io.Reader) (string, error) {
	sum, err := digest(ctx, r)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// Verify recomputes the digest of r and compares it to expectedHex in constant time.
// A mismatch, including an undecodable expectedHex, is reported as false with a
// nil error. Read failures are returned as errors.
func (v *sha256Verifier) Verify(ctx context.Context, r io.Reader, expectedHex string) (bool, error) {
	sum, err := digest(ctx, r)
	if err != nil {
		return false, err
	}

	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) != cryptoDomain.DigestSize {
		return false, nil
	}

	return subtle.ConstantTimeCompare(sum, expected) == 1, nil
}

// NewDigestReader wraps r so everything read through it is hashed.
func (v *sha256Verifier) NewDigestReader(r io.Reader) *DigestReader {
	return &DigestReader{r: r, h: sha256.New()}
}

func digest(ctx context.Context, r io.Reader) ([]byte, error) {
	h := sha256.New()
	buf := make([]byte, cryptoDomain.ChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			return h.Sum(nil), nil
		}
		if err != nil {
			return nil, classifyReadError(err)
		}
	}
}

// DigestReader is a tee reader that hashes and counts the bytes passing through it.
type DigestReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func (d *DigestReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
		d.n += int64(n)
	}
	return n, err
}

// Sum returns the hex digest of the bytes read so far.
func (d *DigestReader) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// BytesRead returns the number of bytes read so far.
func (d *DigestReader) BytesRead() int64 {
	return d.n
}
