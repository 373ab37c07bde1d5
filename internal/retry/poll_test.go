package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(timeout time.Duration) Policy {
	return Policy{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, Timeout: timeout}
}

func TestPollSucceedsAfterPending(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), fastPolicy(time.Second), func(context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestPollStopsOnError(t *testing.T) {
	boom := errors.New("query failed")
	calls := 0
	err := Poll(context.Background(), fastPolicy(time.Second), func(context.Context) (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected query error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("errors must not be retried, got %d calls", calls)
	}
}

func TestPollTimesOut(t *testing.T) {
	start := time.Now()
	err := Poll(context.Background(), fastPolicy(30*time.Millisecond), func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("poll ran well past its bound: %v", elapsed)
	}
}

func TestPollHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Poll(ctx, fastPolicy(time.Second), func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
