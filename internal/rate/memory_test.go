package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/clock"
)

var testStart = time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)

func newTestMemory(t *testing.T, cfg Config) (*MemoryLimiter, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(testStart)
	l, err := NewMemory(cfg, fake)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return l, fake
}

func requireExceeded(t *testing.T, err error, dim Dimension) *ExceededError {
	t.Helper()
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected ExceededError, got %v", err)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatal("ExceededError must match ErrRateLimited")
	}
	if exceeded.Dimension != dim {
		t.Fatalf("expected dimension %s, got %s", dim, exceeded.Dimension)
	}
	return exceeded
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l, fake := newTestMemory(t, Config{PerIP: 100, PerInstall: 2, Window: 60 * time.Second})
	ctx := context.Background()

	if err := l.Check(ctx, "1.1.1.1", "install-a"); err != nil {
		t.Fatalf("first check: %v", err)
	}
	if err := l.Check(ctx, "1.1.1.1", "install-a"); err != nil {
		t.Fatalf("second check: %v", err)
	}

	exceeded := requireExceeded(t, l.Check(ctx, "1.1.1.1", "install-a"), DimensionInstall)
	if s := exceeded.RetryAfterSeconds(); s < 1 || s > 60 {
		t.Fatalf("retry after out of range: %d", s)
	}

	fake.Advance(61 * time.Second)
	if err := l.Check(ctx, "1.1.1.1", "install-a"); err != nil {
		t.Fatalf("expected fresh window after expiry: %v", err)
	}
}

func TestMemoryLimiterRetryAfterRoundsUp(t *testing.T) {
	l, fake := newTestMemory(t, Config{PerIP: 1, PerInstall: 5, Window: 60 * time.Second})
	ctx := context.Background()

	if err := l.Check(ctx, "2.2.2.2", "install-a"); err != nil {
		t.Fatalf("first check: %v", err)
	}

	fake.Advance(10*time.Second + 500*time.Millisecond)
	exceeded := requireExceeded(t, l.Check(ctx, "2.2.2.2", "install-b"), DimensionIP)
	if got := exceeded.RetryAfterSeconds(); got != 50 {
		t.Fatalf("expected ceil(49.5)=50, got %d", got)
	}

	fake.Advance(49*time.Second + 400*time.Millisecond)
	exceeded = requireExceeded(t, l.Check(ctx, "2.2.2.2", "install-b"), DimensionIP)
	if got := exceeded.RetryAfterSeconds(); got != 1 {
		t.Fatalf("expected minimum retry of 1, got %d", got)
	}

	fake.Advance(100 * time.Millisecond)
	if err := l.Check(ctx, "2.2.2.2", "install-b"); err != nil {
		t.Fatalf("window must reset when elapsed equals window: %v", err)
	}
}

func TestMemoryLimiterRejectionDoesNotMutate(t *testing.T) {
	l, fake := newTestMemory(t, Config{PerIP: 1, PerInstall: 5, Window: 60 * time.Second})
	ctx := context.Background()

	_ = l.Check(ctx, "3.3.3.3", "install-a")
	for i := 0; i < 5; i++ {
		requireExceeded(t, l.Check(ctx, "3.3.3.3", "install-a"), DimensionIP)
	}

	fake.Advance(60 * time.Second)
	if err := l.Check(ctx, "3.3.3.3", "install-a"); err != nil {
		t.Fatalf("rejections must not extend the window: %v", err)
	}
}

func TestMemoryLimiterDimensionsAreIndependent(t *testing.T) {
	l, _ := newTestMemory(t, Config{PerIP: 3, PerInstall: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.Check(ctx, "4.4.4.4", "install-a"); err != nil {
		t.Fatalf("first check: %v", err)
	}
	requireExceeded(t, l.Check(ctx, "4.4.4.4", "install-a"), DimensionInstall)
	if err := l.Check(ctx, "4.4.4.4", "install-b"); err != nil {
		t.Fatalf("other install id must pass: %v", err)
	}
	requireExceeded(t, l.Check(ctx, "4.4.4.4", "install-c"), DimensionIP)
	requireExceeded(t, l.Check(ctx, "5.5.5.5", "install-a"), DimensionInstall)
	if err := l.Check(ctx, "5.5.5.5", "install-d"); err != nil {
		t.Fatalf("other IP must pass: %v", err)
	}
}

func TestMemoryLimiterKeepsIPIncrementOnInstallRejection(t *testing.T) {
	l, _ := newTestMemory(t, Config{PerIP: 2, PerInstall: 1, Window: time.Minute})
	ctx := context.Background()

	_ = l.Check(ctx, "6.6.6.6", "install-a")
	requireExceeded(t, l.Check(ctx, "6.6.6.6", "install-a"), DimensionInstall)
	requireExceeded(t, l.Check(ctx, "6.6.6.6", "install-b"), DimensionIP)
}

func TestMemoryLimiterConcurrentChecks(t *testing.T) {
	l, _ := newTestMemory(t, Config{PerIP: 1000, PerInstall: 10, Window: time.Minute})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
		limited atomic.Int64
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Check(ctx, "7.7.7.7", "install-shared")
			switch {
			case err == nil:
				allowed.Add(1)
			case errors.Is(err, ErrRateLimited):
				limited.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 10 || limited.Load() != 54 {
		t.Fatalf("expected 10 allowed and 54 limited, got %d and %d", allowed.Load(), limited.Load())
	}
}

func TestMemoryLimiterSweepsElapsedWindows(t *testing.T) {
	l, fake := newTestMemory(t, Config{PerIP: 5, PerInstall: 5, Window: time.Minute, MaxTrackedKeys: 4})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := l.Check(ctx, fmt.Sprintf("10.0.0.%d", i), fmt.Sprintf("install-%d", i)); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}
	if ips, installs := l.Tracked(); ips != 4 || installs != 4 {
		t.Fatalf("expected 4 tracked keys, got %d and %d", ips, installs)
	}

	fake.Advance(2 * time.Minute)
	if err := l.Check(ctx, "10.0.1.1", "install-new"); err != nil {
		t.Fatalf("check after sweep: %v", err)
	}
	if ips, installs := l.Tracked(); ips != 1 || installs != 1 {
		t.Fatalf("expected elapsed windows swept, got %d and %d", ips, installs)
	}
}

func TestMemoryLimiterSweepKeepsActiveWindows(t *testing.T) {
	l, _ := newTestMemory(t, Config{PerIP: 5, PerInstall: 1, Window: time.Minute, MaxTrackedKeys: 2})
	ctx := context.Background()

	_ = l.Check(ctx, "10.0.0.1", "install-a")
	_ = l.Check(ctx, "10.0.0.2", "install-b")
	_ = l.Check(ctx, "10.0.0.3", "install-c")

	requireExceeded(t, l.Check(ctx, "10.0.0.4", "install-a"), DimensionInstall)
}

func TestMemoryLimiterSweepsAtMostOncePerWindow(t *testing.T) {
	l, fake := newTestMemory(t, Config{PerIP: 5, PerInstall: 5, Window: time.Minute, MaxTrackedKeys: 2})
	ctx := context.Background()

	check := func(n int) {
		t.Helper()
		if err := l.Check(ctx, fmt.Sprintf("10.0.0.%d", n), fmt.Sprintf("install-%d", n)); err != nil {
			t.Fatalf("check %d: %v", n, err)
		}
	}
	tracked := func(want int) {
		t.Helper()
		if ips, installs := l.Tracked(); ips != want || installs != want {
			t.Fatalf("expected %d tracked keys, got %d and %d", want, ips, installs)
		}
	}

	check(1)
	fake.Advance(30 * time.Second)
	check(2)

	// At the cap: key 1 has elapsed and is swept, key 2 is still live.
	fake.Advance(30 * time.Second)
	check(3)
	tracked(2)

	// Key 2 has now elapsed, but the last sweep was only 30s ago.
	fake.Advance(30 * time.Second)
	check(4)
	tracked(3)

	// A full window after the last sweep, keys 2 and 3 are dropped.
	fake.Advance(30 * time.Second)
	check(5)
	tracked(2)
}

func TestNewMemoryValidatesConfig(t *testing.T) {
	tests := map[string]Config{
		"zero ip limit":      {PerIP: 0, PerInstall: 1, Window: time.Minute},
		"zero install limit": {PerIP: 1, PerInstall: 0, Window: time.Minute},
		"short window":       {PerIP: 1, PerInstall: 1, Window: 500 * time.Millisecond},
		"negative cap":       {PerIP: 1, PerInstall: 1, Window: time.Minute, MaxTrackedKeys: -1},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewMemory(cfg, nil); err == nil {
				t.Fatal("expected config rejection")
			}
		})
	}
}
