package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "annextube/pkg/errors"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0, // No jitter for predictable testing
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
		{6, 1 * time.Second, "Sixth attempt (still capped)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		delays[backoff.NextDelay(2)] = true
	}

	if len(delays) < 2 {
		t.Error("Expected multiple different delays with jitter, but got consistent delays")
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeTransient, "temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}

	if err := Do(op, cfg); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return errs.New(errs.ErrorTypeTransient, "always failing")
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}

	if err := Do(op, cfg); err == nil {
		t.Error("Expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryDoesNotRetryNonRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth error", errs.New(errs.ErrorTypeAuth, "bad key")},
		{"not found", errs.New(errs.ErrorTypeNotFound, "missing")},
		{"quota exceeded", &errs.QuotaError{Message: "quota exceeded"}},
		{"context canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			op := func() error {
				attempts++
				return tt.err
			}

			cfg := &Config{
				MaxAttempts: 5,
				Backoff:     &ConstantBackoff{Delay: time.Millisecond},
				RetryIf:     DefaultRetryIf,
				Context:     context.Background(),
			}

			if err := Do(op, cfg); err == nil {
				t.Error("Expected the error to propagate")
			}
			if attempts != 1 {
				t.Errorf("Expected exactly 1 attempt, got %d", attempts)
			}
		})
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	op := func() error {
		attempts++
		if attempts == 1 {
			cancel()
		}
		return errs.New(errs.ErrorTypeTransient, "flaky")
	}

	cfg := &Config{
		MaxAttempts: 10,
		Backoff:     &ConstantBackoff{Delay: time.Hour}, // would block without cancellation
		RetryIf:     DefaultRetryIf,
		Context:     ctx,
	}

	start := time.Now()
	err := Do(op, cfg)
	if err == nil {
		t.Error("Expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Error("Retry did not honor context cancellation promptly")
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errs.New(errs.ErrorTypeTransient, "flaky")
		}
		return "payload", nil
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}

	result, err := DoWithResult(op, cfg)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result != "payload" {
		t.Errorf("Expected payload, got %q", result)
	}
}

func TestRetrierWithOverrides(t *testing.T) {
	base := NewRetrier(&Config{
		MaxAttempts: 1,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	})

	attempts := 0
	err := base.WithMaxAttempts(4).Do(func() error {
		attempts++
		return errs.New(errs.ErrorTypeTransient, "flaky")
	})
	if err == nil {
		t.Error("Expected error")
	}
	if attempts != 4 {
		t.Errorf("Expected 4 attempts with override, got %d", attempts)
	}

	// The original retrier keeps its own limit.
	attempts = 0
	_ = base.Do(func() error {
		attempts++
		return errs.New(errs.ErrorTypeTransient, "flaky")
	})
	if attempts != 1 {
		t.Errorf("Expected 1 attempt on the base retrier, got %d", attempts)
	}
}

func TestDefaultRetryIfUnknownErrors(t *testing.T) {
	if !DefaultRetryIf(errors.New("mystery failure")) {
		t.Error("Expected unknown errors to be retried")
	}
	if DefaultRetryIf(nil) {
		t.Error("Expected nil to not be retried")
	}
}
