package clock

import (
	"sync"
	"testing"
	"time"
)

func TestFakeAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	c := NewFake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("expected %v, got %v", start, got)
	}

	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("expected advance to apply, got %v", got)
	}

	later := start.Add(time.Hour)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Fatalf("expected set to apply, got %v", got)
	}
}

func TestFakeConcurrentAdvance(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c := NewFake(start)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Advance(time.Second)
				_ = c.Now()
			}
		}()
	}
	wg.Wait()

	if got := c.Now().Sub(start); got != 1600*time.Second {
		t.Fatalf("expected 1600s elapsed, got %v", got)
	}
}

func TestFuncAdapter(t *testing.T) {
	fixed := time.Unix(42, 0)
	var c Clock = Func(func() time.Time { return fixed })
	if !c.Now().Equal(fixed) {
		t.Fatalf("expected func clock to return fixed time")
	}
	if Real().Now().IsZero() {
		t.Fatal("real clock returned zero time")
	}
}
