package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Krive/spbatch/internal/httpx/errclass"
)

func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      false,
		RetryOn:     []errclass.ErrorType{errclass.ErrorTypeServer},
	}
}

func TestDo_SucceedsWithoutRetryingOnNilError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestDo_RetriesRetryableErrorsThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errclass.NewStatusError(503, "busy")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_DoesNotRetryNonRetryableErrors(t *testing.T) {
	calls := 0
	wantErr := errclass.NewStatusError(404, "missing")
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected the original error to be returned unwrapped, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestDo_WrapsExhaustedRetriesWithUnwrappableError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errclass.NewStatusError(500, "still down")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls != fastConfig().MaxAttempts {
		t.Errorf("expected %d calls, got %d", fastConfig().MaxAttempts, calls)
	}
	var statusErr *errclass.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected the wrapped error to unwrap to *errclass.StatusError, got %v", err)
	}
	if statusErr.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", statusErr.StatusCode)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(), func() error {
		calls++
		return errclass.NewStatusError(500, "down")
	})
	if err == nil {
		t.Fatal("expected an error when context is already cancelled between attempts")
	}
	if calls == 0 {
		t.Error("expected at least one attempt before the cancellation check")
	}
}

func TestDefaultConfig_AndBatchTransportRetryConfig_AreDistinct(t *testing.T) {
	d := DefaultConfig()
	b := BatchTransportRetryConfig()
	if d.MaxAttempts == b.MaxAttempts && d.BaseDelay == b.BaseDelay {
		t.Error("expected batch transport retry config to differ from the general default")
	}
	for _, rt := range b.RetryOn {
		if rt == errclass.ErrorTypeNetwork {
			t.Error("expected batch transport retry config to omit network errors per its narrower policy")
		}
	}
}
