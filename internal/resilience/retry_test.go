package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kevinreber/siphon/internal/errors"
)

func fastConfig(maxAttempts int) RetryConfig {
	config := DefaultRetryConfig()
	config.MaxAttempts = maxAttempts
	config.InitialDelay = time.Millisecond
	config.JitterEnabled = false
	return config
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0

	err := RetryWithConfig(context.Background(), fastConfig(5), func() error {
		attempts++
		if attempts < 3 {
			return apperrors.NewCollectorError("browser", assert.AnError)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	fatal := apperrors.NewValidationError("bad input")

	err := RetryWithConfig(context.Background(), fastConfig(5), func() error {
		attempts++
		return fatal
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0

	err := RetryWithConfig(context.Background(), fastConfig(3), func() error {
		attempts++
		return apperrors.NewCollectorError("browser", assert.AnError)
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := RetryWithConfig(ctx, fastConfig(10), func() error {
		attempts++
		cancel()
		return apperrors.NewCollectorError("browser", assert.AnError)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2)
}

func TestCalculateDelayBacksOffAndCaps(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 10*time.Millisecond, calculateDelay(config, 0))
	assert.Equal(t, 20*time.Millisecond, calculateDelay(config, 1))
	assert.Equal(t, 40*time.Millisecond, calculateDelay(config, 2))
	assert.Equal(t, 50*time.Millisecond, calculateDelay(config, 3))
}
