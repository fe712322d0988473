package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	filesDomain "github.com/allisson/filevault/internal/files/domain"
)

// FileVerifier looks a stored file up and checks its object against the
// recorded digest, without an owner check.
type FileVerifier interface {
	Lookup(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error)
	VerifyObject(ctx context.Context, file *filesDomain.StoredFile) (bool, error)
}

// RunVerifyFile decrypts one stored file and compares it with the digest
// recorded at upload. A mismatch is reported and returned as an error.
func RunVerifyFile(
	ctx context.Context,
	verifier FileVerifier,
	logger *slog.Logger,
	writer io.Writer,
	fileID string,
	format string,
) error {
	id, err := uuid.Parse(fileID)
	if err != nil {
		return fmt.Errorf("invalid file id: %w", err)
	}

	file, err := verifier.Lookup(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}
	if file.IsDeleted {
		return fmt.Errorf("file %s is deleted", id)
	}

	valid, err := verifier.VerifyObject(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to verify file: %w", err)
	}

	logger.Info("file verified", slog.String("file_id", id.String()), slog.Bool("valid", valid))

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"file_id": id.String(),
			"size":    file.Size,
			"valid":   valid,
		}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		_, _ = fmt.Fprintf(writer, "File:    %s\n", id)
		_, _ = fmt.Fprintf(writer, "Name:    %s\n", file.OriginalName)
		_, _ = fmt.Fprintf(writer, "Size:    %d\n", file.Size)
		if valid {
			_, _ = fmt.Fprintf(writer, "Status:  PASSED\n")
		} else {
			_, _ = fmt.Fprintf(writer, "Status:  FAILED (content does not match the recorded digest)\n")
		}
	}

	if !valid {
		return fmt.Errorf("integrity check failed for file %s", id)
	}
	return nil
}
