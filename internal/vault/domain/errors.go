package domain

import (
	"github.com/allisson/filevault/internal/errors"
)

var (
	// ErrMembershipNotFound indicates no active membership is visible to the caller.
	ErrMembershipNotFound = errors.Wrap(errors.ErrNotFound, "vault membership not found")

	// ErrAlreadyInVault indicates the file already has an active membership.
	ErrAlreadyInVault = errors.Wrap(errors.ErrConflict, "file is already in the vault")

	// ErrNotMembershipOwner indicates the membership belongs to another user.
	ErrNotMembershipOwner = errors.Wrap(errors.ErrForbidden, "vault membership belongs to another user")

	// ErrInvalidPinFormat indicates a PIN that is not exactly six digits.
	ErrInvalidPinFormat = errors.Wrap(errors.ErrInvalidInput, "pin must be exactly 6 digits")

	// ErrInvalidDestructAfter indicates an inconsistent self-destruct deadline.
	ErrInvalidDestructAfter = errors.Wrap(
		errors.ErrInvalidInput,
		"destruct_after must be a future time and requires self_destruct",
	)

	// ErrInvalidSecret indicates the PIN did not match.
	ErrInvalidSecret = errors.Wrap(errors.ErrUnauthorized, "invalid vault pin")

	// ErrCapabilityNotFound indicates an unknown, expired or already redeemed capability.
	ErrCapabilityNotFound = errors.Wrap(errors.ErrNotFound, "capability not found or expired")
)
