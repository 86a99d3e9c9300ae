// Package stream implements the append-only stream backend: every record is
// formatted as one newline-delimited line and appended to a single growable
// sink, with backpressure-aware buffering while the sink is saturated or not
// yet ready.
package stream

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/onshopfront/lumberjack/internal/backend"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

var (
	// ErrBackpressure is returned by Flush while the sink is saturated and
	// buffered lines cannot move yet.
	ErrBackpressure = errors.New("stream: sink saturated")
	// ErrClosed is returned once Close has run.
	ErrClosed = errors.New("stream: closed")
)

// Stats counts the stream backend's activity since construction.
type Stats struct {
	// Appended is the number of records formatted and buffered.
	Appended uint64
	// WrittenBytes is the total accepted by the sink.
	WrittenBytes uint64
	// DeferredWrites counts writes the sink refused under saturation.
	DeferredWrites uint64
	// PendingBytes is the buffered content not yet accepted.
	PendingBytes int
}

// Stream is the append-only backend over a Sink. Before the sink signals
// ready every line accumulates in the pending buffer; the first ready signal
// flushes it as one write and switches to immediate mode. A refused write
// leaves the buffer intact and interim lines keep growing it, so the sink
// never sees concurrent independent writes.
type Stream struct {
	sink   Sink
	logger logpkg.Logger

	mu       sync.Mutex
	pending  bytes.Buffer
	ready    bool
	draining bool
	closed   bool
	stats    Stats

	stopCh chan struct{}
}

var _ backend.Backend = (*Stream)(nil)

// New wraps an already-constructed sink.
func New(sink Sink, logger logpkg.Logger) *Stream {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	s := &Stream{sink: sink, logger: logger, stopCh: make(chan struct{})}
	select {
	case <-sink.Ready():
		// Already-ready sinks skip the waiting-buffer phase entirely.
		s.ready = true
	default:
		go s.awaitReady()
	}
	return s
}

// Open builds a stream backend over a FileSink appending to target.
func Open(target string, logger logpkg.Logger) (*Stream, error) {
	sink, err := NewFileSink(target)
	if err != nil {
		return nil, err
	}
	return New(sink, logger), nil
}

func (s *Stream) awaitReady() {
	select {
	case <-s.sink.Ready():
	case <-s.stopCh:
		return
	}
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	// The whole waiting buffer goes out as one write.
	s.tryWrite()
}

// Log implements backend.Backend. It formats the record as a single line and
// appends it to the buffer; if the sink is ready and not saturated the buffer
// is written through immediately.
func (s *Stream) Log(message string, details backend.Details) {
	line := formatLine(backend.NewRecord(message, details))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending.WriteString(line)
	s.stats.Appended++
	s.mu.Unlock()

	s.tryWrite()
}

// tryWrite pushes the buffered content to the sink when possible. The buffer
// is only truncated once the sink accepts; a refusal flips the stream into
// drain-wait mode.
func (s *Stream) tryWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready || s.draining || s.closed || s.pending.Len() == 0 {
		return
	}

	buf := s.pending.Bytes()
	accepted, err := s.sink.Write(buf)
	if err != nil {
		// Buffer retained; the next append retries.
		s.logger.Error("sink write failed; lines retained", logpkg.Err(err))
		return
	}
	if !accepted {
		s.stats.DeferredWrites++
		s.draining = true
		go s.awaitDrain()
		return
	}
	s.stats.WrittenBytes += uint64(len(buf))
	s.pending.Reset()
}

func (s *Stream) awaitDrain() {
	select {
	case <-s.sink.Drain():
	case <-s.stopCh:
		return
	}
	s.mu.Lock()
	s.draining = false
	s.mu.Unlock()
	s.tryWrite()
}

// Flush implements backend.Backend: it attempts to move all buffered lines to
// the sink now and, when the sink supports it, syncs it to durable storage.
// Returns ErrBackpressure while saturation holds lines back.
func (s *Stream) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	s.tryWrite()

	s.mu.Lock()
	blocked := s.pending.Len() > 0 && (s.draining || !s.ready)
	s.mu.Unlock()
	if blocked {
		return ErrBackpressure
	}

	if syncer, ok := s.sink.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Stats returns a snapshot of the activity counters.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.PendingBytes = s.pending.Len()
	return st
}

// Close makes a final write attempt and closes the sink. Lines still held
// back by saturation are dropped and logged.
func (s *Stream) Close() error {
	s.tryWrite()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dropped := s.pending.Len()
	s.pending.Reset()
	s.mu.Unlock()

	close(s.stopCh)
	if dropped > 0 {
		s.logger.Error("closed with unwritten lines", logpkg.Int("bytes", dropped))
	}
	return s.sink.Close()
}

// formatLine renders a record as one newline-terminated line:
// timestamp level [ns1:ns2] message args... ctx=<id>
func formatLine(rec backend.Record) string {
	var b strings.Builder
	b.WriteString(rec.Time.UTC().Format(time.RFC3339Nano))
	b.WriteByte(' ')
	b.WriteString(rec.Level.String())
	if len(rec.Namespaces) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(rec.Namespaces, ":"))
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(rec.Message)
	for _, a := range rec.Arguments {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	if rec.ContextID != "" {
		b.WriteString(" ctx=")
		b.WriteString(rec.ContextID)
	}
	b.WriteByte('\n')
	return b.String()
}
