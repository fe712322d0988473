// Package domain defines the authenticated principal forwarded by the gateway.
package domain

import (
	"github.com/google/uuid"

	"github.com/allisson/filevault/internal/errors"
)

// Well-known roles. Any other role string is accepted and treated like RoleEmployee
// by policies that have no explicit entry for it.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// ErrPrincipalMissing indicates the request carried no usable principal.
var ErrPrincipalMissing = errors.Wrap(errors.ErrUnauthorized, "principal missing")

// Principal is the authenticated user on whose behalf an operation runs.
type Principal struct {
	UserID     uuid.UUID
	Role       string
	Department string
	TeamID     *uuid.UUID
}

// Owns reports whether the principal is ownerID.
func (p *Principal) Owns(ownerID uuid.UUID) bool {
	return p != nil && p.UserID == ownerID
}
