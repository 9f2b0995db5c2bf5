package utils

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetryDelayDoubles(t *testing.T) {
	r := &RetryConfig{BaseDelay: 100 * time.Millisecond}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		got := r.Delay(tt.attempt)
		if got != tt.want {
			t.Errorf("Delay(%d) = %v; want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryDelayJitterBounds(t *testing.T) {
	r := &RetryConfig{BaseDelay: 10 * time.Millisecond, Jitter: 5 * time.Millisecond}

	for i := 0; i < 50; i++ {
		got := r.Delay(2)
		if got < 20*time.Millisecond || got >= 25*time.Millisecond {
			t.Fatalf("Delay(2) = %v; want in [20ms, 25ms)", got)
		}
	}
}

func TestRetryDoSucceedsAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewLogger()}

	calls := 0
	err := r.Do("flaky-op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryDoExhaustsAttempts(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: NewLogger()}

	calls := 0
	err := r.Do("doomed-op", func() error {
		calls++
		return errors.New("permanent")
	})

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("error should report attempt count, got %q", err.Error())
	}
}
