package domain

import (
	"github.com/allisson/filevault/internal/errors"
)

var (
	// ErrRootSecretNotSet indicates neither ROOT_SECRET nor a KMS-wrapped root secret
	// is configured. The service refuses to start without one.
	ErrRootSecretNotSet = errors.New("root secret is not set")

	// ErrInvalidKeySize indicates a key that is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrTruncatedObject indicates a stored object too short to hold its nonce prefix.
	ErrTruncatedObject = errors.Wrap(errors.ErrCorrupted, "truncated encrypted object")

	// ErrSourceUnreadable indicates the input stream failed mid-copy.
	ErrSourceUnreadable = errors.Wrap(errors.ErrUnavailable, "source unreadable")

	// ErrDestinationUnwritable indicates the output stream failed mid-copy.
	ErrDestinationUnwritable = errors.Wrap(errors.ErrUnavailable, "destination unwritable")
)
