package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPublic(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("session x: %w", ErrNotFound), http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"validation", Validation("jobTitle is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"transition", fmt.Errorf("start from completed: %w", ErrInvalidTransition), http.StatusConflict, "INVALID_SESSION_STATE"},
		{"not active", ErrSessionNotActive, http.StatusConflict, "SESSION_NOT_ACTIVE"},
		{"token", New(ErrInvalidSessionToken, "expired"), http.StatusUnauthorized, "AUTHENTICATION_ERROR"},
		{"incomplete", ErrIncompleteTurn, http.StatusUnprocessableEntity, "INCOMPLETE_TURN"},
		{"provider", fmt.Errorf("llm: %w", ErrProviderTimeout), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"overloaded", New(ErrOverloaded, "queue full"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := ToPublic(tt.err)
			assert.Equal(t, tt.status, pub.Status)
			assert.Equal(t, tt.code, pub.Code)
			assert.NotEmpty(t, pub.Message)
		})
	}
}

func TestToPublic_ValidationMessage(t *testing.T) {
	assert.Equal(t, "jobTitle is required", ToPublic(Validation("jobTitle is required")).Message)
	assert.Equal(t, "Invalid input provided", ToPublic(ErrValidation).Message)
}

func TestToPublic_HidesInternals(t *testing.T) {
	pub := ToPublic(errors.New("dial tcp 10.0.0.3:5432: secret host"))
	assert.NotContains(t, pub.Message, "10.0.0.3")
}

func TestAppError_Unwrap(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(ErrNotFound, "session"))
	assert.True(t, errors.Is(err, ErrNotFound))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "not found: session", appErr.Error())
	assert.Equal(t, "not found", New(ErrNotFound, "").Error())
}
