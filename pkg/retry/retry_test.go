package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.NotNil(t, cfg.Retryable)
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	calls := 0
	want := errors.New("connection refused")
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	cfg := fastConfig()
	cfg.Retryable = IsTransient

	calls := 0
	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New(`password authentication failed for user "eval"`)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, cfg, func(context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryAndBackoff(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 4

	var delays []time.Duration
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		assert.Equal(t, len(delays)+1, attempt)
		delays = append(delays, delay)
	}

	_ = Do(context.Background(), cfg, func(context.Context) error { return errors.New("timeout") })

	// No jitter: 1ms, 2ms, 4ms, then capped at 5ms.
	assert.Equal(t, []time.Duration{
		time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond, 5 * time.Millisecond,
	}, delays)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("the database system is starting up")
		}
		return "pool", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pool", got)

	got, err = DoWithResult(context.Background(), fastConfig(), func(context.Context) (string, error) {
		return "partial", errors.New("broken pipe")
	})
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestDoWithResult_NilConfig(t *testing.T) {
	got, err := DoWithResult(context.Background(), nil, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{"startup", fmt.Errorf("connect: %w", errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)")), true},
		{"net op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("host down")}, true},
		{"auth", errors.New("Login failed for user 'sa'."), false},
		{"unknown database", errors.New(`database "spider" does not exist`), false},
		{"canceled", fmt.Errorf("connect: %w", context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
