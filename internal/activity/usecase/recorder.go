package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
)

type recorder struct {
	repo   EventRepository
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing pending events to repo.
func NewRecorder(repo EventRepository, logger *slog.Logger) Recorder {
	return &recorder{repo: repo, logger: logger}
}

func (r *recorder) Record(ctx context.Context, entry Entry) {
	metadata := "{}"
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			r.logger.Warn("failed to encode activity metadata",
				slog.String("action", string(entry.Action)),
				slog.Any("error", err),
			)
		} else {
			metadata = string(data)
		}
	}

	now := time.Now().UTC()
	event := &activityDomain.Event{
		ID:           uuid.Must(uuid.NewV7()),
		Action:       entry.Action,
		PrincipalID:  entry.PrincipalID,
		FileID:       entry.FileID,
		MembershipID: entry.MembershipID,
		Metadata:     metadata,
		Status:       activityDomain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.repo.Create(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Error("failed to record activity",
			slog.String("action", string(entry.Action)),
			slog.String("file_id", entry.FileID.String()),
			slog.Any("error", err),
		)
	}
}

// NoopRecorder discards every entry.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, Entry) {}
