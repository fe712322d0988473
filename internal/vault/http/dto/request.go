// Package dto provides data transfer objects for vault HTTP requests and responses.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/filevault/internal/validation"
	vaultUseCase "github.com/allisson/filevault/internal/vault/usecase"
)

// PromoteRequest contains the parameters for placing a file into the vault.
type PromoteRequest struct {
	FileID        string `json:"file_id"`
	Pin           string `json:"pin"`
	SelfDestruct  bool   `json:"self_destruct"`
	DestructAfter string `json:"destruct_after"`
}

// Validate checks the request shape. A destruct_after is only accepted together
// with self_destruct.
func (r *PromoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FileID, validation.Required, customValidation.UUID),
		validation.Field(&r.Pin, validation.Required, customValidation.Pin),
		validation.Field(&r.DestructAfter,
			validation.When(r.SelfDestruct, validation.Required),
			validation.When(!r.SelfDestruct, validation.Empty.Error("requires self_destruct")),
			validation.Date(time.RFC3339).Error("must be an RFC3339 timestamp"),
			validation.By(func(value any) error {
				destructAfter, err := r.parsedDestructAfter()
				if err != nil {
					return nil
				}
				return customValidation.InFuture.Validate(destructAfter)
			}),
		),
	)
}

// ToInput converts a validated request into use case input.
func (r *PromoteRequest) ToInput() (vaultUseCase.PromoteInput, error) {
	fileID, err := uuid.Parse(r.FileID)
	if err != nil {
		return vaultUseCase.PromoteInput{}, err
	}
	destructAfter, err := r.parsedDestructAfter()
	if err != nil {
		return vaultUseCase.PromoteInput{}, err
	}
	return vaultUseCase.PromoteInput{
		FileID:        fileID,
		Pin:           r.Pin,
		SelfDestruct:  r.SelfDestruct,
		DestructAfter: destructAfter,
	}, nil
}

func (r *PromoteRequest) parsedDestructAfter() (*time.Time, error) {
	if r.DestructAfter == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, r.DestructAfter)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
