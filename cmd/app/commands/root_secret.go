package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/filevault/internal/crypto/domain"
	cryptoService "github.com/allisson/filevault/internal/crypto/service"
)

// rootSecretSize is the number of random bytes in a generated root secret.
const rootSecretSize = 32

// RunCreateRootSecret prints a new random root secret. With kmsKeyURI set the
// secret is wrapped by the KMS keeper and printed as ROOT_SECRET_CIPHERTEXT, so
// the plaintext never leaves the process.
func RunCreateRootSecret(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	secret := make([]byte, rootSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate root secret: %w", err)
	}
	defer cryptoDomain.Zero(secret)

	if kmsKeyURI == "" {
		logger.Warn("printing a plaintext root secret; prefer --kms-key-uri outside development")
		_, _ = fmt.Fprintln(writer, "# Copy this variable to your .env file or secrets manager")
		_, _ = fmt.Fprintf(writer, "ROOT_SECRET=\"%s\"\n", base64.StdEncoding.EncodeToString(secret))
		return nil
	}

	keeperInterface, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeperInterface.Close(); closeErr != nil {
			logger.Error("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	keeper, ok := keeperInterface.(interface {
		Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	})
	if !ok {
		return fmt.Errorf("KMS keeper does not support encryption")
	}

	ciphertext, err := keeper.Encrypt(ctx, secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt root secret with KMS: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Copy these variables to your .env file or secrets manager")
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "ROOT_SECRET_CIPHERTEXT=\"%s\"\n", base64.StdEncoding.EncodeToString(ciphertext))
	return nil
}
