// Package service provides the at-rest encryption pipeline: key derivation from the
// root secret, the AES-256-CTR stream cipher and the SHA-256 integrity verifier.
package service

import (
	"context"
	"io"
)

// KeyProvider supplies the 32-byte data key. Implementations must return a copy so
// callers can zero it without affecting other users.
type KeyProvider interface {
	Key() []byte
}

// StreamCipher encrypts and decrypts arbitrarily large streams without buffering
// them in memory. Stored objects are laid out as [nonce][ciphertext].
type StreamCipher interface {
	// Encrypt writes a fresh nonce followed by the ciphertext of src to dst and
	// returns the nonce and the number of plaintext bytes consumed.
	Encrypt(ctx context.Context, dst io.Writer, src io.Reader) (nonce []byte, n int64, err error)

	// Decrypt reads the nonce prefix from src and writes the plaintext to dst.
	Decrypt(ctx context.Context, dst io.Writer, src io.Reader) (int64, error)

	// NewDecryptReader reads the nonce prefix from src and returns a reader
	// yielding the plaintext.
	NewDecryptReader(ctx context.Context, src io.Reader) (io.Reader, error)
}

// IntegrityVerifier computes and checks content digests.
type IntegrityVerifier interface {
	Digest(ctx context.Context, r io.Reader) (string, error)
	Verify(ctx context.Context, r io.Reader, expectedHex string) (bool, error)
	NewDigestReader(r io.Reader) *DigestReader
}
