// Package domain defines the constants, errors and small helpers shared by the
// at-rest encryption pipeline.
package domain

const (
	// NonceSize is the length of the random CTR nonce prefixed to every stored object.
	NonceSize = 16

	// KeySize is the AES-256 key length produced by key derivation.
	KeySize = 32

	// ChunkSize is the buffer size used when streaming plaintext or ciphertext.
	ChunkSize = 32 * 1024

	// DigestSize is the length in bytes of a SHA-256 content digest.
	DigestSize = 32
)

// scrypt cost parameters used to stretch the root secret into the data key.
const (
	ScryptN = 32768
	ScryptR = 8
	ScryptP = 1
)

// KeyDerivationSalt is the fixed salt mixed into the root secret during key
// derivation. Changing it makes every stored object unreadable.
var KeyDerivationSalt = []byte("filevault/at-rest/v1")
