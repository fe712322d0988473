package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/filevault/internal/crypto/domain"
)

// aesCTRStreamCipher implements StreamCipher with AES-256 in CTR mode. The block is
// built once from the provider's key and is safe for concurrent use.
type aesCTRStreamCipher struct {
	block cipher.Block
}

// NewStreamCipher builds the AES block from the provider's key.
func NewStreamCipher(keyProvider KeyProvider) (StreamCipher, error) {
	key := keyProvider.Key()
	defer cryptoDomain.Zero(key)

	if len(key) != cryptoDomain.KeySize {
		return nil, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize,
			cryptoDomain.KeySize,
			len(key),
		)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return &aesCTRStreamCipher{block: block}, nil
}

// Encrypt generates a fresh nonce, writes it to dst and then streams the ciphertext.
func (c *aesCTRStreamCipher) Encrypt(
	ctx context.Context,
	dst io.Writer,
	src io.Reader,
) ([]byte, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, 0, fmt.Errorf("failed to generate nonce: %w", err)
	}

	if _, err := dst.Write(nonce); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", cryptoDomain.ErrDestinationUnwritable, err)
	}

	n, err := xorCopy(ctx, dst, src, cipher.NewCTR(c.block, nonce))
	if err != nil {
		return nil, n, err
	}
	return nonce, n, nil
}

// Decrypt consumes the nonce prefix of src and writes the plaintext to dst.
func (c *aesCTRStreamCipher) Decrypt(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	nonce, err := readNonce(src)
	if err != nil {
		return 0, err
	}

	return xorCopy(ctx, dst, src, cipher.NewCTR(c.block, nonce))
}

// NewDecryptReader consumes the nonce prefix of src and returns a plaintext reader.
func (c *aesCTRStreamCipher) NewDecryptReader(ctx context.Context, src io.Reader) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nonce, err := readNonce(src)
	if err != nil {
		return nil, err
	}

	return &decryptReader{ctx: ctx, src: src, stream: cipher.NewCTR(c.block, nonce)}, nil
}

func readNonce(src io.Reader) ([]byte, error) {
	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := io.ReadFull(src, nonce); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, cryptoDomain.ErrTruncatedObject
		}
		return nil, classifyReadError(err)
	}
	return nonce, nil
}

// xorCopy streams src through the keystream into dst one chunk at a time,
// checking ctx at every chunk boundary.
func xorCopy(ctx context.Context, dst io.Writer, src io.Reader, stream cipher.Stream) (int64, error) {
	buf := make([]byte, cryptoDomain.ChunkSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			stream.XORKeyStream(buf[:n], buf[:n])
			written, err := dst.Write(buf[:n])
			total += int64(written)
			if err != nil {
				return total, fmt.Errorf("%w: %w", cryptoDomain.ErrDestinationUnwritable, err)
			}
			if written != n {
				return total, fmt.Errorf("%w: %w", cryptoDomain.ErrDestinationUnwritable, io.ErrShortWrite)
			}
		}

		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, classifyReadError(readErr)
		}
	}
}

// classifyReadError passes context errors through untouched and marks everything
// else as a source failure.
func classifyReadError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, cryptoDomain.ErrSourceUnreadable) {
		return err
	}
	return fmt.Errorf("%w: %w", cryptoDomain.ErrSourceUnreadable, err)
}

type decryptReader struct {
	ctx    context.Context
	src    io.Reader
	stream cipher.Stream
}

func (r *decryptReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := r.src.Read(p)
	if n > 0 {
		r.stream.XORKeyStream(p[:n], p[:n])
	}
	if err != nil && err != io.EOF {
		return n, classifyReadError(err)
	}
	return n, err
}
