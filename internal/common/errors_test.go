package common

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{NewAppError("BAD_ZIP", "upload", ErrInvalidArchive), http.StatusBadRequest},
		{WrapError(ErrValidation, "record"), http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{ErrDatabase, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "err=%v", tt.err)
	}
}

func TestAppError(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	assert.Equal(t, "CONFIG_ERROR: DB_URL is required: invalid input", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, "X: y", NewAppError("X", "y", nil).Error())
	assert.Nil(t, WrapError(nil, "ignored"))
	assert.Equal(t, "fallback", ErrorCode(ErrDatabase, "fallback"))
}
