package goSession

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples request paths from sink latency. Events are
// delivered in order by a single goroutine; Close drains what is buffered.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	ch         chan AuditEvent
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	closed     atomic.Bool
	closeOnce  sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		ch:         make(chan AuditEvent, size),
		done:       make(chan struct{}),
	}
	d.wg.Go(d.run)
	return d
}

func (d *auditDispatcher) run() {
	ctx := context.Background()
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(ctx, event)
		case <-d.done:
			d.drain(ctx)
			return
		}
	}
}

func (d *auditDispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(ctx, event)
		default:
			return
		}
	}
}

// Emit queues event. With dropIfFull a full buffer drops and counts the event;
// otherwise Emit waits for room, ctx, or Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and waits until buffered ones are delivered.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of events that never reached the sink.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
