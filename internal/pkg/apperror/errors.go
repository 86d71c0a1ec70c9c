package apperror

import (
	"errors"
	"net/http"
)

// Sentinel errors. Service code wraps these with fmt.Errorf("...: %w", err)
// and callers match with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrSessionNotActive     = errors.New("session not active")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidSessionToken  = errors.New("invalid session token")
	ErrIncompleteTurn       = errors.New("incomplete turn")
	ErrProviderTimeout      = errors.New("provider timeout")
	ErrProviderError        = errors.New("provider error")
	ErrIdleTimeout          = errors.New("idle timeout")
	ErrOverloaded           = errors.New("overloaded")
)

// AppError pairs a sentinel with the message that is safe to show a client.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

func Validation(message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message}
}

// Public describes how an error is presented outside the process.
type Public struct {
	Status  int
	Code    string
	Message string
}

// ToPublic maps err onto a status, a stable code and a safe message. Unknown
// errors collapse into a generic 500 so internals never reach the client.
func ToPublic(err error) Public {
	switch {
	case errors.Is(err, ErrNotFound):
		return Public{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Requested resource not found"}
	case errors.Is(err, ErrValidation):
		msg := "Invalid input provided"
		var appErr *AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			msg = appErr.Message
		}
		return Public{http.StatusBadRequest, "VALIDATION_ERROR", msg}
	case errors.Is(err, ErrInvalidTransition):
		return Public{http.StatusConflict, "INVALID_SESSION_STATE", "Invalid session state"}
	case errors.Is(err, ErrSessionNotActive):
		return Public{http.StatusConflict, "SESSION_NOT_ACTIVE", "Interview session is not active"}
	case errors.Is(err, ErrInvalidSessionToken), errors.Is(err, ErrAuthenticationFailed):
		return Public{http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required"}
	case errors.Is(err, ErrIncompleteTurn):
		return Public{http.StatusUnprocessableEntity, "INCOMPLETE_TURN", "Turn content is not finalized yet"}
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, ErrProviderError), errors.Is(err, ErrOverloaded):
		return Public{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable"}
	default:
		return Public{http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error occurred"}
	}
}
