// Package service provides the vault's PIN hashing and capability issuance.
package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/filevault/internal/errors"
)

// PinHasher hashes and verifies vault PINs.
type PinHasher interface {
	HashPin(pin string) (string, error)
	// VerifyPin reports whether pin matches hash. A malformed hash never matches.
	VerifyPin(pin, hash string) bool
}

type argon2PinHasher struct {
	hasher *pwdhash.PasswordHasher
}

// NewPinHasher creates an argon2id PinHasher using the Moderate policy.
func NewPinHasher() (PinHasher, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create pin hasher")
	}
	return &argon2PinHasher{hasher: hasher}, nil
}

func (h *argon2PinHasher) HashPin(pin string) (string, error) {
	hash, err := h.hasher.Hash([]byte(pin))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash pin")
	}
	return hash, nil
}

func (h *argon2PinHasher) VerifyPin(pin, hash string) bool {
	ok, err := h.hasher.Verify([]byte(pin), hash)
	if err != nil {
		return false
	}
	return ok
}
