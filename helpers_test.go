package goSession

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/clock"
)

const strongSecret = "Zq8!mN2#vR5$tL9^wK3&xP7*yH4@bC6%"

var testStart = time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Environment = "test"
	cfg.Token.Issuer = "offload-backend-test"
	cfg.Token.Audience = "offload-ios-test"
	cfg.Token.ActiveKeyID = "test-kid"
	cfg.Token.Secret = strongSecret
	cfg.Token.SessionTTL = 5 * time.Minute
	cfg.RateLimit.PerIP = 30
	cfg.RateLimit.PerInstall = 10
	cfg.RateLimit.Window = 60 * time.Second
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func buildTestEngine(t *testing.T, cfg Config, sink AuditSink) (*Engine, *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(testStart)
	engine, err := New().
		WithConfig(cfg).
		WithClock(fake).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, fake
}

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) next(t *testing.T) AuditEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *syncBuffer) Contains(v string) bool {
	return strings.Contains(b.String(), v)
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
