package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitThrottlesSameHost(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1 means the second call waits ~100ms.
	l := New(Config{RequestsPerSecond: 10, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://example.com/feed.xml"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://example.com/other"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("second request waited %v, expected ~100ms", elapsed)
	}
}

func TestWaitSeparatesHosts(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://a.example/1"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://b.example/1"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("a different host must not share the bucket")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 0.001, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://slow.example/1"); err != nil {
		t.Fatal(err)
	}
	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(cancelled, "https://slow.example/2"); err == nil {
		t.Fatal("expected context expiry error")
	}
}

func TestZeroRateDisablesThrottle(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx, "https://example.com/x"); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("unset rate must not throttle")
	}
}
