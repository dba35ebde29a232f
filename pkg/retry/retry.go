// Package retry retries transient failures with exponential backoff and jitter.
// It is used around datasource connections, which commonly fail while a
// database container or server is still starting.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0; 0.1 spreads each delay by +/-10%

	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig suits connecting to a database that may still be starting:
// 5 retries from 250ms, doubling, capped at 5s, retrying only transient errors.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   5,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
		Retryable:    IsTransient,
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do runs fn until it succeeds, returns a non-retryable error, or retries
// are exhausted. Waiting stops early when ctx is done.
func Do(ctx context.Context, cfg *Config, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult is Do for functions that return a value, such as pool
// constructors. The last error is returned when every attempt fails.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var zero T
	delay := cfg.InitialDelay
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= cfg.MaxRetries || (cfg.Retryable != nil && !cfg.Retryable(err)) {
			return zero, err
		}

		wait := applyJitter(delay, cfg.JitterFactor)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// transientPatterns are driver messages for failures that usually clear on
// their own.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"timed out",
	"timeout",
	"network is unreachable",
	"too many connections",
	"the database system is starting up",
	"the database system is shutting down",
	"server is in script upgrade mode",
	"unexpected eof",
}

// IsTransient reports whether err looks like a temporary connectivity
// failure. Authentication failures, unknown databases and SQL errors are
// permanent. Context cancellation is never retried.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
