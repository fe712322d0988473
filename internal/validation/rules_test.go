package validation

import (
	"errors"
	"testing"
	"time"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/filevault/internal/errors"
)

func TestPin(t *testing.T) {
	tests := []struct {
		name      string
		pin       string
		shouldErr bool
	}{
		{name: "valid", pin: "482913"},
		{name: "leading zeros", pin: "000001"},
		{name: "too short", pin: "48291", shouldErr: true},
		{name: "too long", pin: "4829130", shouldErr: true},
		{name: "letters", pin: "48291a", shouldErr: true},
		{name: "non-ascii digits", pin: "٤٨٢٩١٣", shouldErr: true},
		{name: "whitespace", pin: " 48291", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.pin, Pin)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	assert.NoError(t, validation.Validate("report.pdf", FileName))
	assert.NoError(t, validation.Validate("Q3 plan (final).docx", FileName))
	assert.Error(t, validation.Validate("../etc/passwd", FileName))
	assert.Error(t, validation.Validate("dir/file.txt", FileName))
	assert.Error(t, validation.Validate(`dir\file.txt`, FileName))
	assert.Error(t, validation.Validate("..", FileName))
}

func TestUUID(t *testing.T) {
	assert.NoError(t, validation.Validate("0190f1a2-7c3b-7d4e-8f00-1234567890ab", UUID))
	assert.Error(t, validation.Validate("not-a-uuid", UUID))
	assert.Error(t, validation.Validate("0190f1a2", UUID))
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, validation.Validate("x", NotBlank))
	assert.Error(t, validation.Validate("   ", NotBlank))
}

func TestInFuture(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)
	var unset *time.Time

	assert.NoError(t, validation.Validate(&future, InFuture))
	assert.NoError(t, validation.Validate(unset, InFuture))
	assert.Error(t, validation.Validate(&past, InFuture))
	assert.Error(t, validation.Validate(past, InFuture))
	assert.Error(t, validation.Validate("tomorrow", InFuture))
}

func TestWrapValidationError(t *testing.T) {
	assert.Nil(t, WrapValidationError(nil))

	err := WrapValidationError(errors.New("pin: must be exactly 6 digits."))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "must be exactly 6 digits")
}
