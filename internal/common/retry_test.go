package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/service"
)

func quickRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	}, quickRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return errors.New("persistent failure")
	}, quickRetry(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	permanent := &RetryableError{
		Err:       fmt.Errorf("%w: bad receipt", ErrInvalidInput),
		Retryable: false,
	}

	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return permanent
	}, quickRetry(5))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, calls, "non-retryable errors should fail fast")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "plain errors retry by default",
			err:  errors.New("database is locked"),
			want: true,
		},
		{
			name: "declared retryable",
			err:  &RetryableError{Err: errors.New("busy"), Retryable: true},
			want: true,
		},
		{
			name: "declared non-retryable",
			err:  &RetryableError{Err: errors.New("bad input"), Retryable: false},
			want: false,
		},
		{
			name: "wrapped non-retryable",
			err:  fmt.Errorf("save failed: %w", &RetryableError{Err: errors.New("bad input"), Retryable: false}),
			want: false,
		},
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: false,
		},
		{
			name: "context canceled",
			err:  context.Canceled,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
