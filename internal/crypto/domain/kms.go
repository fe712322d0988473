package domain

import "context"

// KMSKeeper is the subset of *secrets.Keeper used to unwrap the root secret.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
