package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns message", func(t *testing.T) {
		err := &AppError{
			Code:    "TEST_ERROR",
			Message: "test error message",
		}
		assert.Equal(t, "test error message", err.Error())
	})

	t.Run("Error includes wrapped error", func(t *testing.T) {
		wrapped := errors.New("wrapped error")
		err := &AppError{
			Code:    "TEST_ERROR",
			Message: "test error message",
			Err:     wrapped,
		}
		assert.Contains(t, err.Error(), "test error message")
		assert.Contains(t, err.Error(), "wrapped error")
	})

	t.Run("Unwrap returns wrapped error", func(t *testing.T) {
		wrapped := errors.New("wrapped error")
		err := &AppError{
			Code:    "TEST_ERROR",
			Message: "test message",
			Err:     wrapped,
		}
		assert.Equal(t, wrapped, err.Unwrap())
	})
}

func TestNewAppError(t *testing.T) {
	wrapped := errors.New("original")
	err := NewAppError("CUSTOM_ERROR", "custom message", 418, wrapped)

	assert.Equal(t, "CUSTOM_ERROR", err.Code)
	assert.Equal(t, "custom message", err.Message)
	assert.Equal(t, 418, err.StatusCode)
	assert.Equal(t, wrapped, err.Err)
}

func TestConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound("subscription")
		assert.Equal(t, "NOT_FOUND", err.Code)
		assert.Equal(t, "subscription not found", err.Message)
		assert.Equal(t, http.StatusNotFound, err.StatusCode)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("QuotaExceeded", func(t *testing.T) {
		err := QuotaExceeded("monthly generation limit reached")
		assert.Equal(t, "QUOTA_EXCEEDED", err.Code)
		assert.Equal(t, http.StatusPaymentRequired, err.StatusCode)
		assert.True(t, errors.Is(err, ErrQuotaExceeded))
	})

	t.Run("RateLimited uses default message", func(t *testing.T) {
		err := RateLimited("")
		assert.Equal(t, "too many requests", err.Message)
		assert.Equal(t, http.StatusTooManyRequests, err.StatusCode)
	})

	t.Run("PaymentRequired", func(t *testing.T) {
		err := PaymentRequired("")
		assert.Equal(t, http.StatusPaymentRequired, err.StatusCode)
		assert.True(t, errors.Is(err, ErrPaymentRequired))
	})

	t.Run("Upstream", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Upstream("", cause)
		assert.Equal(t, http.StatusBadGateway, err.StatusCode)
		assert.True(t, errors.Is(err, cause))
	})
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"app error", NotFound("plan"), http.StatusNotFound},
		{"wrapped sentinel", fmt.Errorf("check: %w", ErrQuotaExceeded), http.StatusPaymentRequired},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"payment required", ErrPaymentRequired, http.StatusPaymentRequired},
		{"upstream", ErrUpstream, http.StatusBadGateway},
		{"conflict", ErrConflict, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetStatusCode(tt.err))
		})
	}
}

func TestToResponse(t *testing.T) {
	err := QuotaExceeded("limit reached")
	resp := err.ToResponse()

	assert.Equal(t, "QUOTA_EXCEEDED", resp.Error.Code)
	assert.Equal(t, "limit reached", resp.Error.Message)
}
