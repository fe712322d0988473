// Package usecase records activity events and relays them to a publisher.
package usecase

import (
	"context"

	"github.com/google/uuid"

	activityDomain "github.com/allisson/filevault/internal/activity/domain"
)

// EventRepository persists activity events.
type EventRepository interface {
	Create(ctx context.Context, event *activityDomain.Event) error
	GetPending(ctx context.Context, limit int) ([]*activityDomain.Event, error)
	Update(ctx context.Context, event *activityDomain.Event) error
}

// Publisher delivers a relayed event downstream.
type Publisher interface {
	Publish(ctx context.Context, event *activityDomain.Event) error
}

// Entry describes an activity to record.
type Entry struct {
	Action       activityDomain.Action
	PrincipalID  uuid.UUID
	FileID       uuid.UUID
	MembershipID *uuid.UUID
	Metadata     map[string]any
}

// Recorder records activity after the state change it describes has committed.
// Recording is best effort: failures are logged and never surface to callers.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Relay drains pending events to the publisher.
type Relay interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
}
