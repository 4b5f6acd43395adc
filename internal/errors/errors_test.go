package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetCategoryAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		category   ErrorCategory
		httpStatus int
		message    string
	}{
		{
			name:       "validation error",
			err:        NewValidationError("timestamp is required"),
			category:   CategoryValidation,
			httpStatus: http.StatusBadRequest,
			message:    "[VALIDATION_ERROR] timestamp is required",
		},
		{
			name:       "not found error",
			err:        NewNotFoundError("no events in range"),
			category:   CategoryNotFound,
			httpStatus: http.StatusNotFound,
			message:    "[NOT_FOUND] no events in range",
		},
		{
			name:       "storage error",
			err:        NewStorageError("insert failed", errors.New("database is locked")),
			category:   CategoryStorage,
			httpStatus: http.StatusInternalServerError,
			message:    "[INTERNAL_ERROR] insert failed",
		},
		{
			name:       "collector error",
			err:        NewCollectorError("browser", errors.New("database is locked")),
			category:   CategoryCollector,
			httpStatus: http.StatusBadGateway,
			message:    "[COLLECTOR_ERROR] browser source unavailable",
		},
		{
			name:       "timeout error",
			err:        NewTimeoutError("analysis timed out", nil),
			category:   CategoryTimeout,
			httpStatus: http.StatusGatewayTimeout,
			message:    "[TIMEOUT_ERROR] analysis timed out",
		},
		{
			name:       "configuration error",
			err:        NewConfigurationError("invalid retention", nil),
			category:   CategoryConfiguration,
			httpStatus: http.StatusInternalServerError,
			message:    "[CONFIGURATION_ERROR] Configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Error())
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("vacuum failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		category ErrorCategory
	}{
		{
			name:     "passes through app errors",
			input:    NewValidationError("bad payload"),
			category: CategoryValidation,
		},
		{
			name:     "classifies locked database as storage",
			input:    errors.New("database is locked"),
			category: CategoryStorage,
		},
		{
			name:     "classifies missing table as storage",
			input:    errors.New("no such table: events"),
			category: CategoryStorage,
		},
		{
			name:     "classifies timeout text",
			input:    errors.New("i/o timeout"),
			category: CategoryTimeout,
		},
		{
			name:     "classifies context cancellation",
			input:    fmt.Errorf("query aborted: %w", context.Canceled),
			category: CategoryTimeout,
		},
		{
			name:     "classifies deadline exceeded",
			input:    fmt.Errorf("query aborted: %w", context.DeadlineExceeded),
			category: CategoryTimeout,
		},
		{
			name:     "defaults to internal",
			input:    errors.New("something odd"),
			category: CategoryInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.input)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.category, appErr.Category)
		})
	}

	assert.Nil(t, ToAppError(nil))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewCollectorError("browser", nil)))
	assert.True(t, IsRetryableError(NewTimeoutError("slow query", nil)))
	assert.True(t, IsRetryableError(errors.New("database is locked")))
	assert.False(t, IsRetryableError(NewValidationError("bad payload")))
	assert.False(t, IsRetryableError(NewNotFoundError("missing")))
}

func TestGetRetryDelayGrowsWithAttempts(t *testing.T) {
	collectorErr := NewCollectorError("browser", nil)

	first := GetRetryDelay(collectorErr, 1)
	second := GetRetryDelay(collectorErr, 2)
	third := GetRetryDelay(collectorErr, 3)

	assert.Greater(t, second, first)
	assert.Greater(t, third, second)
	assert.Greater(t, first, time.Duration(0))
}

func TestWrapError(t *testing.T) {
	cause := errors.New("permission denied")
	wrapped := WrapError(cause, "failed to read %s", "history file")

	require.Error(t, wrapped)
	assert.Equal(t, "failed to read history file: permission denied", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	assert.NoError(t, WrapError(nil, "ignored"))
}

func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		c.Error(NewValidationError("missing source"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation")
}

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestSafeClose(t *testing.T) {
	ok := &closeRecorder{}
	SafeClose(ok, "store")
	assert.True(t, ok.closed)

	failing := &closeRecorder{err: errors.New("already closed")}
	SafeClose(failing, "store")
	assert.True(t, failing.closed)

	SafeClose(nil, "absent")
}
