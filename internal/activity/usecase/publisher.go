package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
)

// LogPublisher emits relayed events as structured log records on a dedicated logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher writing to logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With(slog.String("stream", "activity"))}
}

// Publish logs the event. Metadata that is not a JSON object is rejected so the
// relay retries and eventually marks it failed.
func (p *LogPublisher) Publish(ctx context.Context, event *activityDomain.Event) error {
	var metadata map[string]any
	if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
		return err
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("action", string(event.Action)),
		slog.String("principal_id", event.PrincipalID.String()),
		slog.String("file_id", event.FileID.String()),
		slog.Time("occurred_at", event.CreatedAt),
		slog.Any("metadata", metadata),
	}
	if event.MembershipID != nil {
		attrs = append(attrs, slog.String("membership_id", event.MembershipID.String()))
	}

	p.logger.LogAttrs(ctx, slog.LevelInfo, "activity", attrs...)
	return nil
}
