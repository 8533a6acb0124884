package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Initial: time.Millisecond, Max: 5 * time.Millisecond}
}

var errBusy = &StatusError{StatusCode: 503, URL: "https://example.org"}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	v, err := Do(context.Background(), DefaultPolicy(), func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls, want ok after 1", v, calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	v, err := Do(context.Background(), fastPolicy(3), func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errBusy
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || calls != 3 {
		t.Errorf("got %d after %d calls, want 42 after 3", v, calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	_, err := Do(context.Background(), fastPolicy(3), func(_ context.Context) (int, error) {
		calls++
		return 7, errBusy
	})
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	var calls int
	notFound := &StatusError{StatusCode: 404}
	_, err := Do(context.Background(), fastPolicy(5), func(_ context.Context) (int, error) {
		calls++
		return 0, notFound
	})
	if !errors.Is(err, notFound) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := Do(ctx, Policy{Attempts: 10, Initial: time.Second}, func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, errBusy
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_CustomRetryableAndOnRetry(t *testing.T) {
	var attempts []int
	p := fastPolicy(3)
	p.Retryable = func(error) bool { return true }
	p.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_, _ = Do(context.Background(), p, func(_ context.Context) (int, error) {
		return 0, errors.New("anything")
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("unexpected retry callbacks %v", attempts)
	}
}

func TestPolicy_BackoffDoublesAndCaps(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: time.Second}
	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		if got := p.Backoff(i); got != w*time.Millisecond {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w*time.Millisecond)
		}
	}
	if got := p.Backoff(100); got != time.Second {
		t.Errorf("Backoff(100) = %v, want cap", got)
	}
}

func TestPolicy_BackoffJitter(t *testing.T) {
	p := Policy{Initial: time.Second, Max: 10 * time.Second, Jitter: 0.5}
	seen := map[time.Duration]bool{}
	for range 50 {
		d := p.Backoff(0)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("delay %v outside [500ms, 1500ms]", d)
		}
		seen[d] = true
	}
	if len(seen) < 2 {
		t.Error("expected jitter to vary delays")
	}
}

func TestLogRetries(t *testing.T) {
	LogRetries("ftp")(1, errors.New("test error"))
}
