// Package domain defines activity events: an audit trail of file and vault
// operations written to an outbox and relayed asynchronously.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action names the operation an event records.
type Action string

const (
	ActionFileUpload   Action = "file.upload"
	ActionFileDownload Action = "file.download"
	ActionFileVerify   Action = "file.verify"
	ActionFileDelete   Action = "file.delete"
	ActionFileExpire   Action = "file.expire"

	ActionVaultPromote    Action = "vault.promote"
	ActionVaultGate       Action = "vault.gate"
	ActionVaultGateDenied Action = "vault.gate_denied"
	ActionVaultRemove     Action = "vault.remove"
	ActionVaultExpire     Action = "vault.expire"
)

// Status tracks relay progress.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Event is one activity record. PrincipalID is uuid.Nil for system actions
// such as the expiration sweep. Metadata is a JSON object.
type Event struct {
	ID           uuid.UUID
	Action       Action
	PrincipalID  uuid.UUID
	FileID       uuid.UUID
	MembershipID *uuid.UUID
	Metadata     string
	Status       Status
	Retries      int
	LastError    *string
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
