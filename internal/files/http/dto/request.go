// Package dto provides data transfer objects for file HTTP requests and responses.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/filevault/internal/validation"
)

// UploadFileRequest holds the non-file form fields of a multipart upload.
type UploadFileRequest struct {
	// ExpiresAt is an optional RFC3339 timestamp.
	ExpiresAt string `form:"expires_at"`
}

// Validate checks the expiration, when present, is a future RFC3339 timestamp.
func (r *UploadFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ExpiresAt,
			validation.Date(time.RFC3339).Error("must be an RFC3339 timestamp"),
			validation.By(func(value any) error {
				expiresAt, err := r.ParsedExpiresAt()
				if err != nil {
					return nil
				}
				return customValidation.InFuture.Validate(expiresAt)
			}),
		),
	)
}

// ParsedExpiresAt returns the parsed expiration or nil when absent.
func (r *UploadFileRequest) ParsedExpiresAt() (*time.Time, error) {
	if r.ExpiresAt == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, r.ExpiresAt)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
