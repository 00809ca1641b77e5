// Package retry implements the whole-HTTP-call retry policy used by the
// transport adapters. The batching engine itself never retries a
// sub-request (spec: retries are whole-batch and live in the transport
// layer) — this package is where that whole-call retry actually lives.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Krive/spbatch/internal/httpx/errclass"
)

// Config holds retry configuration for one transport adapter.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
	RetryOn     []errclass.ErrorType
}

// DefaultConfig returns a sensible default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		RetryOn: []errclass.ErrorType{
			errclass.ErrorTypeRateLimit,
			errclass.ErrorTypeTimeout,
			errclass.ErrorTypeNetwork,
			errclass.ErrorTypeServer,
		},
	}
}

// BatchTransportRetryConfig returns a retry configuration tuned for batch
// HTTP calls: batches are expensive to re-send (they carry every
// sub-request's body again), so delays are longer than DefaultConfig's and
// network errors are not retried. It allows one more attempt than
// DefaultConfig (4 instead of 3).
func BatchTransportRetryConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    60 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		RetryOn: []errclass.ErrorType{
			errclass.ErrorTypeRateLimit,
			errclass.ErrorTypeTimeout,
			errclass.ErrorTypeServer,
		},
	}
}

// Func is a function that can be retried.
type Func func() error

// Do executes fn, retrying according to config when the returned error is a
// errclass.RetryableError of a type in config.RetryOn.
func Do(ctx context.Context, config Config, fn Func) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err, config.RetryOn) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(calculateDelay(attempt, config)):
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", config.MaxAttempts, lastErr)
}

func shouldRetry(err error, retryableTypes []errclass.ErrorType) bool {
	retryErr, ok := err.(errclass.RetryableError)
	if !ok || !retryErr.IsRetryable() {
		return false
	}
	for _, t := range retryableTypes {
		if retryErr.GetErrorType() == t {
			return true
		}
	}
	return false
}

func calculateDelay(attempt int, config Config) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		jitter := delay * 0.25 * (rand.Float64()*2 - 1)
		delay += jitter
		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}
	return time.Duration(delay)
}
