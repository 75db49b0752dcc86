package rate

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/clock"
)

type window struct {
	count   int
	started time.Time
}

// windowSet holds the windows of one dimension. lastSweep throttles eviction
// to one scan per Window once the set is at its cap.
type windowSet struct {
	windows   map[string]*window
	lastSweep time.Time
}

// MemoryLimiter keeps fixed windows in process memory. Windows are not shared
// between processes.
type MemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	clock   clock.Clock
	ip      windowSet
	install windowSet
}

// NewMemory returns an in-process limiter. A nil clock defaults to [clock.Real].
func NewMemory(cfg Config, clk clock.Clock) (*MemoryLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &MemoryLimiter{
		cfg:     cfg,
		clock:   clk,
		ip:      windowSet{windows: make(map[string]*window)},
		install: windowSet{windows: make(map[string]*window)},
	}, nil
}

// Check applies the IP limit and then the install limit.
func (l *MemoryLimiter) Check(_ context.Context, clientIP, installID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if err := l.hit(&l.ip, clientIP, l.cfg.PerIP, now, DimensionIP); err != nil {
		return err
	}
	return l.hit(&l.install, installID, l.cfg.PerInstall, now, DimensionInstall)
}

// Tracked returns the number of IP and install windows currently held.
func (l *MemoryLimiter) Tracked() (ips, installs int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ip.windows), len(l.install.windows)
}

// hit must be called with l.mu held.
func (l *MemoryLimiter) hit(set *windowSet, key string, limit int, now time.Time, dim Dimension) error {
	w, ok := set.windows[key]
	if !ok {
		l.sweep(set, now)
		set.windows[key] = &window{count: 1, started: now}
		return nil
	}

	elapsed := now.Sub(w.started)
	if elapsed >= l.cfg.Window {
		w.count = 1
		w.started = now
		return nil
	}
	if w.count >= limit {
		return &ExceededError{Dimension: dim, RetryAfter: l.cfg.Window - elapsed}
	}
	w.count++
	return nil
}

// sweep drops elapsed windows once the set reaches MaxTrackedKeys. It scans at
// most once per Window; an elapsed window left in place resets on its next hit
// anyway, so skipping a scan never changes a decision.
func (l *MemoryLimiter) sweep(set *windowSet, now time.Time) {
	if l.cfg.MaxTrackedKeys == 0 || len(set.windows) < l.cfg.MaxTrackedKeys {
		return
	}
	if !set.lastSweep.IsZero() && now.Sub(set.lastSweep) < l.cfg.Window {
		return
	}
	set.lastSweep = now
	for key, w := range set.windows {
		if now.Sub(w.started) >= l.cfg.Window {
			delete(set.windows, key)
		}
	}
}
