package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("error 429: Rate Limit exceeded"), true},
		{"quota", errors.New("QUOTA EXCEEDED for project"), true},
		{"server error", errors.New("rpc error: 503 service unavailable"), true},
		{"network", errors.New("read tcp: connection reset by peer"), true},
		{"timeout", errors.New("context deadline exceeded (Client.Timeout)"), true},
		{"bad request", errors.New("invalid argument: empty prompt"), false},
		{"auth", errors.New("401 unauthorized"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

	calls := 0
	got, err := Do(t.Context(), cfg, nil, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 unavailable")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls, want \"ok\" after 3", got, calls)
	}
}

func TestDoFailsFastOnPermanentError(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	permanent := errors.New("invalid argument")

	calls := 0
	_, err := Do(t.Context(), cfg, nil, func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do: err = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("permanent error retried %d times, want 1 call", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	calls := 0
	_, err := Do(t.Context(), cfg, nil, func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d: 500 internal error", calls)
	})
	if err == nil {
		t.Fatal("Do: expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("made %d calls, want 3 (initial + 2 retries)", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := Config{MaxRetries: 5, InitialInterval: time.Minute, MaxInterval: time.Minute}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	defer func() { <-done }()

	_, err := Do(ctx, cfg, nil, func(context.Context) (int, error) {
		return 0, errors.New("503 unavailable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do: err = %v, want context.Canceled", err)
	}
}
