package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "data: is required", NewValidationError("data", "is required").Error())
	assert.Equal(t, "bad body", NewValidationError("", "bad body").Error())
}

func TestValidationError_MatchesInvalidInput(t *testing.T) {
	err := fmt.Errorf("record score change: %w", NewValidationError("model", "is required"))

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrNotFound))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "model", ve.Field)
}
