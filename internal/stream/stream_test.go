package stream

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onshopfront/lumberjack/internal/backend"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

// fakeSink is a controllable sink: tests open the ready gate, toggle
// saturation and inspect every write attempt.
type fakeSink struct {
	readyCh chan struct{}
	drainCh chan struct{}

	mu       sync.Mutex
	accept   bool
	attempts int
	accepted [][]byte
	closed   bool
}

func newFakeSink(ready, accept bool) *fakeSink {
	s := &fakeSink{
		readyCh: make(chan struct{}),
		drainCh: make(chan struct{}),
		accept:  accept,
	}
	if ready {
		close(s.readyCh)
	}
	return s
}

func (s *fakeSink) Ready() <-chan struct{} { return s.readyCh }
func (s *fakeSink) Drain() <-chan struct{} { return s.drainCh }

func (s *fakeSink) Write(p []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if !s.accept {
		return false, nil
	}
	s.accepted = append(s.accepted, append([]byte(nil), p...))
	return true, nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) setAccept(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accept = v
}

func (s *fakeSink) snapshot() (attempts int, accepted [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts, append([][]byte(nil), s.accepted...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWaitingBufferFlushedAsSingleWrite(t *testing.T) {
	sink := newFakeSink(false, true)
	s := New(sink, logpkg.NewNopLogger())
	defer s.Close()

	s.Log("one", backend.Details{Level: backend.LevelInfo})
	s.Log("two", backend.Details{Level: backend.LevelInfo})
	s.Log("three", backend.Details{Level: backend.LevelInfo})

	time.Sleep(20 * time.Millisecond)
	if attempts, _ := sink.snapshot(); attempts != 0 {
		t.Fatalf("sink saw %d writes before ready", attempts)
	}

	close(sink.readyCh)
	waitFor(t, "the waiting buffer to flush", func() bool {
		_, accepted := sink.snapshot()
		return len(accepted) == 1
	})

	_, accepted := sink.snapshot()
	lines := strings.Split(strings.TrimRight(string(accepted[0]), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("first write carried %d lines, want 3", len(lines))
	}
	for i, want := range []string{"one", "two", "three"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
}

func TestBackpressureRetainsBufferUntilDrain(t *testing.T) {
	sink := newFakeSink(true, false)
	s := New(sink, logpkg.NewNopLogger())
	defer s.Close()

	s.Log("held", backend.Details{Level: backend.LevelWarning})
	waitFor(t, "the refused write", func() bool {
		attempts, _ := sink.snapshot()
		return attempts == 1
	})

	// Interim lines accumulate; no further attempts while saturated.
	s.Log("also held", backend.Details{Level: backend.LevelWarning})
	time.Sleep(20 * time.Millisecond)
	if attempts, _ := sink.snapshot(); attempts != 1 {
		t.Fatalf("sink saw %d attempts while saturated, want 1", attempts)
	}
	if err := s.Flush(context.Background()); !errors.Is(err, ErrBackpressure) {
		t.Fatalf("flush under saturation = %v, want ErrBackpressure", err)
	}
	if st := s.Stats(); st.DeferredWrites != 1 || st.PendingBytes == 0 {
		t.Fatalf("stats under saturation = %+v", st)
	}

	sink.setAccept(true)
	sink.drainCh <- struct{}{}

	waitFor(t, "the retried write", func() bool {
		_, accepted := sink.snapshot()
		return len(accepted) == 1
	})
	_, accepted := sink.snapshot()
	got := string(accepted[0])
	if !strings.Contains(got, "held") || !strings.Contains(got, "also held") {
		t.Fatalf("retried write missing content: %q", got)
	}
	if st := s.Stats(); st.PendingBytes != 0 || st.WrittenBytes != uint64(len(accepted[0])) {
		t.Fatalf("stats after drain = %+v", st)
	}
}

func TestImmediateModeWritesThrough(t *testing.T) {
	sink := newFakeSink(true, true)
	s := New(sink, logpkg.NewNopLogger())
	defer s.Close()

	s.Log("direct", backend.Details{Level: backend.LevelDebug, Namespaces: []string{"a", "b"}})
	waitFor(t, "the write", func() bool {
		_, accepted := sink.snapshot()
		return len(accepted) == 1
	})

	_, accepted := sink.snapshot()
	line := string(accepted[0])
	if !strings.Contains(line, "[a:b]") || !strings.Contains(line, "direct") {
		t.Fatalf("line = %q", line)
	}
	if !bytes.HasSuffix(accepted[0], []byte("\n")) {
		t.Fatal("line is not newline-terminated")
	}
}

func TestCloseClosesSinkAndRejectsFlush(t *testing.T) {
	sink := newFakeSink(true, true)
	s := New(sink, logpkg.NewNopLogger())

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !sink.closed {
		t.Fatal("sink left open")
	}
	if err := s.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("flush after close = %v, want ErrClosed", err)
	}
}

func TestFileSinkAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	s, err := Open(path, logpkg.NewNopLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	s.Log("first line", backend.Details{Level: backend.LevelInfo, ContextID: "ctx1"})
	s.Log("second line", backend.Details{Level: backend.LevelError, Arguments: []interface{}{42}})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("file holds %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "first line") || !strings.Contains(lines[0], "ctx=ctx1") {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR") || !strings.Contains(lines[1], "42") {
		t.Fatalf("line 1 = %q", lines[1])
	}
}
