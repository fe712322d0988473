package usecase

import (
	"context"
	"log/slog"
	"time"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
	"github.com/allisson/filevault/internal/database"
)

// RelayConfig holds relay configuration.
type RelayConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

type relay struct {
	config    RelayConfig
	txManager database.TxManager
	repo      EventRepository
	publisher Publisher
	logger    *slog.Logger
}

// NewRelay creates a Relay publishing pending events in batches.
func NewRelay(
	config RelayConfig,
	txManager database.TxManager,
	repo EventRepository,
	publisher Publisher,
	logger *slog.Logger,
) Relay {
	return &relay{
		config:    config,
		txManager: txManager,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Start processes events every interval until ctx is cancelled.
func (r *relay) Start(ctx context.Context) error {
	r.logger.Info("starting activity relay",
		slog.Duration("interval", r.config.Interval),
		slog.Int("batch_size", r.config.BatchSize),
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping activity relay")
			return ctx.Err()
		case <-ticker.C:
			if err := r.ProcessEvents(ctx); err != nil {
				r.logger.Error("failed to relay activity events", slog.Any("error", err))
			}
		}
	}
}

// ProcessEvents publishes one batch of pending events inside a transaction.
// Publish failures bump the retry counter; events reaching MaxRetries are
// marked failed and left for inspection.
func (r *relay) ProcessEvents(ctx context.Context) error {
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := r.repo.GetPending(ctx, r.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		r.logger.Debug("relaying activity events", slog.Int("count", len(events)))

		for _, event := range events {
			now := time.Now().UTC()
			event.UpdatedAt = now

			if err := r.publisher.Publish(ctx, event); err != nil {
				r.logger.Warn("failed to publish activity event",
					slog.String("event_id", event.ID.String()),
					slog.String("action", string(event.Action)),
					slog.Any("error", err),
				)

				event.Retries++
				msg := err.Error()
				event.LastError = &msg
				if event.Retries >= r.config.MaxRetries {
					event.Status = activityDomain.StatusFailed
				}
			} else {
				event.Status = activityDomain.StatusProcessed
				event.ProcessedAt = &now
			}

			if err := r.repo.Update(ctx, event); err != nil {
				return err
			}
		}

		return nil
	})
}
