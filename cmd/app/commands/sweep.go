package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/filevault/internal/sweeper"
)

// SweepRunner runs one expiration sweep.
type SweepRunner interface {
	SweepOnce(ctx context.Context) (sweeper.SweepResult, error)
}

// RunSweep performs a single synchronous sweep and reports what it did. A sweep
// with per-item failures still completes but exits with an error.
func RunSweep(
	ctx context.Context,
	runner SweepRunner,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("running expiration sweep")

	result, err := runner.SweepOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"files_expired":         result.FilesExpired,
			"memberships_destroyed": result.MembershipsDestroyed,
			"failures":              result.Failures,
		}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Files expired:          %d\n", result.FilesExpired)
		_, _ = fmt.Fprintf(writer, "Memberships destroyed:  %d\n", result.MembershipsDestroyed)
		_, _ = fmt.Fprintf(writer, "Failures:               %d\n", result.Failures)
	}

	if result.Failures > 0 {
		return fmt.Errorf("sweep finished with %d failure(s)", result.Failures)
	}
	return nil
}
