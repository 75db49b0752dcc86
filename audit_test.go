package goSession

import (
	"context"
	"testing"
	"time"
)

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	cfg := testConfig()
	cfg.Audit.Enabled = false
	engine, _ := buildTestEngine(t, cfg, sink)

	if _, _, err := engine.IssueSession(context.Background(), "install-12345"); err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	_, _ = engine.Decode(context.Background(), "garbage")
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no sink calls, got %d", sink.Count())
	}
}

func TestAuditSessionIssuedEvent(t *testing.T) {
	sink := newCaptureSink(8)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	engine, _ := buildTestEngine(t, cfg, sink)

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	if _, _, err := engine.IssueSession(ctx, "install-12345"); err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	ev := sink.next(t)
	if ev.EventType != AuditEventSessionIssued || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.IP != "203.0.113.7" {
		t.Fatalf("unexpected ip %q", ev.IP)
	}
	if ev.InstallFingerprint == "" || ev.InstallFingerprint == "install-12345" {
		t.Fatalf("expected fingerprint instead of raw install id, got %q", ev.InstallFingerprint)
	}
	if ev.Metadata["kid"] != "test-kid" {
		t.Fatalf("expected kid metadata, got %v", ev.Metadata)
	}
	if !ev.Timestamp.Equal(testStart) {
		t.Fatalf("expected engine clock timestamp, got %s", ev.Timestamp)
	}
}

func TestAuditRateLimitedAndRejectedEvents(t *testing.T) {
	sink := newCaptureSink(16)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.RateLimit.PerInstall = 1
	engine, _ := buildTestEngine(t, cfg, sink)
	ctx := WithClientIP(context.Background(), "198.51.100.1")

	tok, _, err := engine.IssueSession(ctx, "install-12345")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	_ = sink.next(t)

	if _, _, err := engine.IssueSession(ctx, "install-12345"); err == nil {
		t.Fatal("expected rate limit")
	}
	ev := sink.next(t)
	if ev.EventType != AuditEventSessionRateLimited || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["dimension"] != RateLimitDimensionInstall || ev.Metadata["retry_after"] == "" {
		t.Fatalf("unexpected metadata %v", ev.Metadata)
	}

	_, _ = engine.Decode(ctx, tok+"x")
	ev = sink.next(t)
	if ev.EventType != AuditEventTokenRejected || ev.Error != string(auditErrInvalidToken) {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e4"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditBlockingEmitCountsCancelledContext(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	dispatcher.Emit(ctx, AuditEvent{EventType: "e3"})

	if dispatcher.Dropped() != 1 {
		t.Fatalf("expected one dropped event, got %d", dispatcher.Dropped())
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp:          time.Now().UTC(),
		EventType:          AuditEventSessionIssued,
		InstallFingerprint: "0011223344556677",
		IP:                 "127.0.0.1",
		Success:            true,
	})

	if !buf.Contains(`"event_type":"session_issued"`) {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains(`"install_fingerprint":"0011223344556677"`) {
		t.Fatal("expected JSON log line to contain fingerprint")
	}
	if out := buf.String(); out[len(out)-1] != '\n' {
		t.Fatal("expected newline-terminated JSON line")
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, sink)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	if sink.Count() != 1 {
		t.Fatalf("expected buffered event delivered on close, got %d", sink.Count())
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	var buf syncBuffer
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.RateLimit.PerInstall = 1
	engine, _ := buildTestEngine(t, cfg, NewJSONWriterSink(&buf))

	ctx := context.Background()
	tok, _, err := engine.IssueSession(ctx, "install-secret-id")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	_, _, _ = engine.IssueSession(ctx, "install-secret-id")
	_, _ = engine.Decode(ctx, tok+"x")
	engine.Close()

	for _, needle := range []string{strongSecret, tok, "install-secret-id"} {
		if buf.Contains(needle) {
			t.Fatalf("sensitive value leaked in audit output: %q", needle)
		}
	}
	if !buf.Contains(AuditEventTokenRejected) {
		t.Fatal("expected audit output to be written")
	}
}
