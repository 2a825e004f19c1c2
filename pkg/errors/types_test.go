package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := New(ErrCodeNotFound, "project 42 not found")
	assert.Equal(t, ErrCodeNotFound, err.Code)
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "project 42 not found")
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesUnderlying(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := Wrap(base, ErrCodeProviderError, "openai request failed")
	require.NotNil(t, err)
	assert.Equal(t, base, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNilReturnsNil(t *testing.T) {
	var typed *Error = Wrap(nil, ErrCodeInternal, "ignored")
	assert.Nil(t, typed)
}

func TestCodeOf(t *testing.T) {
	err := New(ErrCodeMissingDependency, "vision document missing")
	wrapped := fmt.Errorf("assembling context: %w", err)
	assert.Equal(t, ErrCodeMissingDependency, CodeOf(wrapped))
	assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("plain")))
}

func TestIsCodeThroughChain(t *testing.T) {
	err := Wrap(New(ErrCodeInvalidTransition, "no edge"), ErrCodeInvalidTransition, "transition rejected")
	assert.True(t, IsCode(err, ErrCodeInvalidTransition))
	assert.False(t, IsCode(err, ErrCodeNotFound))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeMissingDependency, http.StatusUnprocessableEntity},
		{ErrCodeDuplicateArtifact, http.StatusConflict},
		{ErrCodeInvalidTransition, http.StatusBadRequest},
		{ErrCodeConfigInvalid, http.StatusBadRequest},
		{ErrCodeStreamingUnsupported, http.StatusNotImplemented},
		{ErrCodeProviderError, http.StatusBadGateway},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(New(tc.code, "x")), string(tc.code))
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("untyped")))
}

func TestWithContext(t *testing.T) {
	err := New(ErrCodeProviderError, "bad status").
		WithContext("status", 500).
		WithRetryable(true)
	assert.Equal(t, 500, err.Context["status"])
	assert.True(t, err.Retryable)
}
