package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types emitted by the engine.
const (
	AuditEventSessionIssued      = "session_issued"
	AuditEventSessionRateLimited = "session_rate_limited"
	AuditEventTokenRejected      = "token_rejected"
)

// AuditEvent is one security-relevant engine outcome. It never carries a raw
// install id, token, or secret; InstallFingerprint is a truncated BLAKE2b digest.
type AuditEvent struct {
	Timestamp          time.Time         `json:"timestamp"`
	EventType          string            `json:"event_type"`
	InstallFingerprint string            `json:"install_fingerprint,omitempty"`
	IP                 string            `json:"ip,omitempty"`
	Success            bool              `json:"success"`
	Error              string            `json:"error,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink returns a ChannelSink with the given buffer (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

// Emit blocks until the event is buffered or ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}
