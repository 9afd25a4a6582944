package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetryDo_SucceedsOnFirstTry(t *testing.T) {
	calls := 0
	v, err := RetryDo(context.Background(), fastRetryConfig(), isRetryable, func() (int, error) {
		calls++
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("got (%d, %v), want (7, nil)", v, err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryDo_RetriesOnTransientErrorThenSucceeds(t *testing.T) {
	calls := 0
	v, err := RetryDo(context.Background(), fastRetryConfig(), isRetryable, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, &HTTPError{Status: 503}
		}
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", v, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), fastRetryConfig(), isRetryable, func() (int, error) {
		calls++
		return 0, &HTTPError{Status: 500}
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls != 3 { // MaxRetries=2 means 3 total attempts
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryDo_NonRetryableErrorStopsImmediately(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), fastRetryConfig(), isRetryable, func() (int, error) {
		calls++
		return 0, &HTTPError{Status: 401}
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (non-retryable should not retry)", calls)
	}
}

func TestRetryDo_ContextCancelledDuringBackoffStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryDo(ctx, RetryConfig{MaxRetries: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second},
		isRetryable, func() (int, error) {
			calls++
			if calls == 1 {
				cancel()
			}
			return 0, &HTTPError{Status: 500}
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (should stop during first backoff sleep)", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &HTTPError{Status: 429}, true},
		{"500", &HTTPError{Status: 500}, true},
		{"503", &HTTPError{Status: 503}, true},
		{"401", &HTTPError{Status: 401}, false},
		{"400", &HTTPError{Status: 400}, false},
		{"non-http error", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
