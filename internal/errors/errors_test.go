package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"username taken", ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
		{"email taken", ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"wrapped conflict", fmt.Errorf("insert: %w", ErrConflict), http.StatusConflict, "CONFLICT"},
		{"user not found", ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"school not found", ErrSchoolNotFound, http.StatusNotFound, "SCHOOL_NOT_FOUND"},
		{"session conflict reported as internal", Internal(ErrSessionConflict), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"invalid input", fmt.Errorf("%w: bad status", ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestInternal(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Internal(cause)

	assert.True(t, Is(err, ErrInternal))
	assert.True(t, Is(err, cause))
	assert.Same(t, err, Internal(err))
	assert.NoError(t, Internal(nil))
	assert.NotContains(t, MapErrorToHTTP(err).Message, "connection refused")
}
