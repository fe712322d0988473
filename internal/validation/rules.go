// Package validation provides custom validation rules for request DTOs.
package validation

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/filevault/internal/errors"
)

var pinRegex = regexp.MustCompile(`^[0-9]{6}$`)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Pin validates a vault PIN: exactly six ASCII digits.
var Pin = validation.NewStringRuleWithError(
	func(s string) bool {
		return pinRegex.MatchString(s)
	},
	validation.NewError("validation_pin_format", "must be exactly 6 digits"),
)

// UUID validates a canonical UUID string.
var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// FileName validates an uploaded file name: a single path element without
// directory separators.
var FileName = validation.NewStringRuleWithError(
	func(s string) bool {
		if s == "." || s == ".." {
			return false
		}
		return filepath.Base(s) == s && !strings.ContainsAny(s, `/\`)
	},
	validation.NewError("validation_file_name", "must be a plain file name"),
)

// InFuture validates that a *time.Time, when set, lies after the current time.
var InFuture = validation.By(func(value any) error {
	var t time.Time
	switch v := value.(type) {
	case *time.Time:
		if v == nil {
			return nil
		}
		t = *v
	case time.Time:
		if v.IsZero() {
			return nil
		}
		t = v
	default:
		return validation.NewError("validation_time_type", "must be a time")
	}
	if !t.After(time.Now()) {
		return validation.NewError("validation_in_future", "must be in the future")
	}
	return nil
})
