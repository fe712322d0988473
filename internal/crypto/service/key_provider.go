package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/scrypt"

	cryptoDomain "github.com/allisson/filevault/internal/crypto/domain"
)

// DeriveKey stretches secret into a KeySize key with scrypt and the fixed salt.
// The output is deterministic for a given secret.
func DeriveKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, cryptoDomain.ErrRootSecretNotSet
	}
	key, err := scrypt.Key(
		secret,
		cryptoDomain.KeyDerivationSalt,
		cryptoDomain.ScryptN,
		cryptoDomain.ScryptR,
		cryptoDomain.ScryptP,
		cryptoDomain.KeySize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// DerivedKeyProvider derives the data key once at construction.
type DerivedKeyProvider struct {
	key []byte
}

// NewDerivedKeyProvider derives the data key from secret.
func NewDerivedKeyProvider(secret []byte) (*DerivedKeyProvider, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &DerivedKeyProvider{key: key}, nil
}

// Key returns a copy of the derived key.
func (p *DerivedKeyProvider) Key() []byte {
	return append([]byte(nil), p.key...)
}

// Close zeroes the derived key.
func (p *DerivedKeyProvider) Close() {
	cryptoDomain.Zero(p.key)
}

// StaticKeyProvider serves a fixed key. Used by tests and tooling.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider returns a provider for key, which must be KeySize bytes.
func NewStaticKeyProvider(key []byte) (*StaticKeyProvider, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			cryptoDomain.ErrInvalidKeySize,
			cryptoDomain.KeySize,
			len(key),
		)
	}
	return &StaticKeyProvider{key: append([]byte(nil), key...)}, nil
}

// Key returns a copy of the static key.
func (p *StaticKeyProvider) Key() []byte {
	return append([]byte(nil), p.key...)
}

// LoadRootSecret resolves the root secret. A plain secret wins; otherwise the
// base64 ciphertext is unwrapped through the KMS keeper at keyURI.
func LoadRootSecret(
	ctx context.Context,
	kms KMSService,
	plain, ciphertextB64, keyURI string,
) ([]byte, error) {
	if plain != "" {
		return []byte(plain), nil
	}
	if ciphertextB64 == "" {
		return nil, cryptoDomain.ErrRootSecretNotSet
	}
	if keyURI == "" {
		return nil, fmt.Errorf("%w: KMS_KEY_URI is required with ROOT_SECRET_CIPHERTEXT",
			cryptoDomain.ErrRootSecretNotSet)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode root secret ciphertext: %w", err)
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	secret, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt root secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, cryptoDomain.ErrRootSecretNotSet
	}
	return secret, nil
}
