package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when no valid session backs the request.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the user's role is outside the allowed set.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a uniqueness constraint would be violated.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned when a password re-check fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput is returned when a request value fails domain validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal is returned when a store or dependency fails unexpectedly.
	ErrInternal = errors.New("internal error")
)

var (
	ErrUsernameTaken   = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrEmailTaken      = fmt.Errorf("%w: email already exists", ErrConflict)
	ErrSessionConflict = fmt.Errorf("%w: session token already exists", ErrConflict)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrSchoolNotFound  = fmt.Errorf("%w: school", ErrNotFound)
)

// Internal wraps an unexpected failure so it matches ErrInternal while the
// cause stays available for logging.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// Is and As re-export the standard helpers so callers importing this package
// under its own name still have them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Internal causes never
// reach the message.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, "not authenticated", "UNAUTHENTICATED")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, "invalid credentials", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, "forbidden", "FORBIDDEN")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusConflict, "username already exists", "USERNAME_TAKEN")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, "email already exists", "EMAIL_TAKEN")
	case errors.Is(err, ErrInternal):
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, "conflict", "CONFLICT")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, "user not found", "USER_NOT_FOUND")
	case errors.Is(err, ErrSchoolNotFound):
		return NewHTTPError(http.StatusNotFound, "school not found", "SCHOOL_NOT_FOUND")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "not found", "NOT_FOUND")
	case errors.Is(err, ErrInvalidInput):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
