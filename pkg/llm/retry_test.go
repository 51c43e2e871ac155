package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryHandler(maxRetries int) *RetryHandler {
	return NewRetryHandler(RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	})
}

func TestRetryHandlerSucceedsAfterTransientFailures(t *testing.T) {
	handler := fastRetryHandler(3)

	attempts := 0
	err := handler.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &openai.Error{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})

	require.NoError(t, err, "retryable failures should eventually succeed")
	assert.Equal(t, 3, attempts, "handler should retry until success")
}

func TestRetryHandlerExhaustsAttempts(t *testing.T) {
	handler := fastRetryHandler(2)

	attempts := 0
	err := handler.Do(context.Background(), func() error {
		attempts++
		return &openai.Error{StatusCode: http.StatusTooManyRequests}
	})

	require.Error(t, err, "exhausted retries should surface the last error")
	assert.Equal(t, 3, attempts, "handler should attempt 1 + max retries times")
}

func TestRetryHandlerDoesNotRetryClientErrors(t *testing.T) {
	handler := fastRetryHandler(3)

	attempts := 0
	err := handler.Do(context.Background(), func() error {
		attempts++
		return &openai.Error{StatusCode: http.StatusBadRequest}
	})

	require.Error(t, err, "client errors should surface immediately")
	assert.Equal(t, 1, attempts, "4xx errors other than 408/429 must not retry")
}

func TestRetryHandlerStopsOnContextCancel(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := handler.Do(ctx, func() error {
		attempts++
		return &openai.Error{StatusCode: http.StatusInternalServerError}
	})

	require.Error(t, err, "cancellation should abort the retry loop")
	assert.ErrorIs(t, err, context.Canceled, "context cancellation should be reported")
	assert.Equal(t, 1, attempts, "no further attempts after cancellation")
}

func TestShouldRetryClassification(t *testing.T) {
	assert.False(t, shouldRetry(nil), "nil error is not retryable")
	assert.False(t, shouldRetry(context.Canceled), "cancellation is not retryable")
	assert.False(t, shouldRetry(context.DeadlineExceeded), "deadline is not retryable")
	assert.False(t, shouldRetry(errors.New("boom")), "unknown errors are not retryable")

	assert.True(t, shouldRetry(&openai.Error{StatusCode: http.StatusTooManyRequests}), "429 should retry")
	assert.True(t, shouldRetry(&openai.Error{StatusCode: http.StatusRequestTimeout}), "408 should retry")
	assert.True(t, shouldRetry(&openai.Error{StatusCode: http.StatusBadGateway}), "502 should retry")
	assert.False(t, shouldRetry(&openai.Error{StatusCode: http.StatusUnauthorized}), "401 should not retry")
}
