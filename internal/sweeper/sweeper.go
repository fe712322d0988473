// Package sweeper removes expired files and self-destructing vault memberships
// on a fixed schedule.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/filevault/internal/errors"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	"github.com/allisson/filevault/internal/metrics"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
)

// FileExpirer is the part of the files use case the sweeper drives.
type FileExpirer interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*filesDomain.StoredFile, error)
	Expire(ctx context.Context, file *filesDomain.StoredFile) error
}

// VaultDestroyer is the part of the vault use case the sweeper drives.
type VaultDestroyer interface {
	GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error)
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]*vaultDomain.Membership, error)
	Destroy(ctx context.Context, membership *vaultDomain.Membership) error
}

// Config holds sweeper settings.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	FilesExpired         int
	MembershipsDestroyed int
	Failures             int
}

// Sweeper runs expiration sweeps.
type Sweeper struct {
	config  Config
	files   FileExpirer
	vault   VaultDestroyer
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Sweeper.
func New(
	config Config,
	files FileExpirer,
	vault VaultDestroyer,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		config:  config,
		files:   files,
		vault:   vault,
		metrics: businessMetrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Start sweeps once immediately and then every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("starting expiration sweeper",
		slog.Duration("interval", s.config.Interval),
		slog.Int("batch_size", s.config.BatchSize),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("expiration sweep failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("stopping expiration sweeper")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce expires files past their expiry and destroys lapsed vault
// memberships. The two rules run independently and each pages through its
// candidates until none are left. A failure on one item is logged and counted;
// the sweep moves on. An error is returned only when a candidate list cannot
// be loaded.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	var result SweepResult

	err := apperrors.Join(
		s.sweepExpiredFiles(ctx, &result),
		s.sweepLapsedMemberships(ctx, &result),
	)

	status := "success"
	if err != nil || result.Failures > 0 {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "sweeper", "sweep", status)
	s.metrics.RecordDuration(ctx, "sweeper", "sweep", time.Since(start), status)

	s.logger.Info("expiration sweep finished",
		slog.Int("files_expired", result.FilesExpired),
		slog.Int("memberships_destroyed", result.MembershipsDestroyed),
		slog.Int("failures", result.Failures),
		slog.Duration("duration", time.Since(start)),
	)
	return result, err
}

// drain loads pages of candidates and hands each item to process until a page
// comes back short. Items that failed stay candidates, so a page in which
// nothing succeeded ends the rule for this sweep.
func drain[T any](
	ctx context.Context,
	limit int,
	list func(ctx context.Context, limit int) ([]T, error),
	process func(ctx context.Context, item T) bool,
) error {
	for {
		page, err := list(ctx, limit)
		if err != nil {
			return err
		}

		succeeded := 0
		for _, item := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			if process(ctx, item) {
				succeeded++
			}
		}

		if len(page) == 0 || len(page) < limit || succeeded == 0 {
			return nil
		}
	}
}

func (s *Sweeper) sweepExpiredFiles(ctx context.Context, result *SweepResult) error {
	now := s.now().UTC()
	err := drain(ctx, s.config.BatchSize,
		func(ctx context.Context, limit int) ([]*filesDomain.StoredFile, error) {
			return s.files.ListExpired(ctx, now, limit)
		},
		func(ctx context.Context, file *filesDomain.StoredFile) bool {
			if err := s.expireFile(ctx, file); err != nil {
				result.Failures++
				s.logger.Warn("failed to expire file",
					slog.String("file_id", file.ID.String()),
					slog.Any("error", err),
				)
				return false
			}
			result.FilesExpired++
			return true
		},
	)
	if err != nil && ctx.Err() == nil {
		return apperrors.Wrap(err, "failed to list expired files")
	}
	return err
}

// expireFile routes vaulted files through the vault so their quota is released.
func (s *Sweeper) expireFile(ctx context.Context, file *filesDomain.StoredFile) error {
	membership, err := s.vault.GetByFileID(ctx, file.ID)
	switch {
	case err == nil:
		return s.vault.Destroy(ctx, membership)
	case apperrors.Is(err, apperrors.ErrNotFound):
		return s.files.Expire(ctx, file)
	default:
		return err
	}
}

func (s *Sweeper) sweepLapsedMemberships(ctx context.Context, result *SweepResult) error {
	now := s.now().UTC()
	err := drain(ctx, s.config.BatchSize,
		func(ctx context.Context, limit int) ([]*vaultDomain.Membership, error) {
			return s.vault.ListLapsed(ctx, now, limit)
		},
		func(ctx context.Context, membership *vaultDomain.Membership) bool {
			if err := s.vault.Destroy(ctx, membership); err != nil {
				result.Failures++
				s.logger.Warn("failed to destroy vault membership",
					slog.String("membership_id", membership.ID.String()),
					slog.Any("error", err),
				)
				return false
			}
			result.MembershipsDestroyed++
			return true
		},
	)
	if err != nil && ctx.Err() == nil {
		return apperrors.Wrap(err, "failed to list lapsed vault memberships")
	}
	return err
}
