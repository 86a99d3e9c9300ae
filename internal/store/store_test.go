package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/onshopfront/lumberjack/internal/backend"
	pebblestore "github.com/onshopfront/lumberjack/internal/storage/pebble"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

// testOptions keeps the automatic flush and compression out of the way so
// tests drive the store explicitly.
func testOptions() Options {
	return Options{
		FlushInterval:        time.Hour,
		CompressionThreshold: 1000,
	}
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s := New(db, opts, logpkg.NewNopLogger())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFlushEmptyQueueIsNoOp(t *testing.T) {
	s := newTestStore(t, testOptions())
	ctx := context.Background()

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush of empty queue: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	recs, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("export returned %d records from an empty store", len(recs))
	}
}

func TestLogFlushExportRoundTrip(t *testing.T) {
	s := newTestStore(t, testOptions())
	ctx := context.Background()

	s.Log("first", backend.Details{Level: backend.LevelInfo, Namespaces: []string{"api"}})
	s.Log("second", backend.Details{Level: backend.LevelError, Arguments: []interface{}{404, "missing"}})
	if got := s.PendingCount(); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := s.PendingCount(); got != 0 {
		t.Fatalf("pending after flush = %d, want 0", got)
	}

	recs, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("exported %d records, want 2", len(recs))
	}
	if recs[0].Message != "first" || recs[1].Message != "second" {
		t.Fatalf("export out of order: %q, %q", recs[0].Message, recs[1].Message)
	}
	if recs[0].Namespaces[0] != "api" {
		t.Fatalf("namespaces = %v", recs[0].Namespaces)
	}
	if recs[1].Arguments[0] != "404" || recs[1].Arguments[1] != "missing" {
		t.Fatalf("arguments = %v", recs[1].Arguments)
	}
	if recs[1].Level != backend.LevelError {
		t.Fatalf("level = %v", recs[1].Level)
	}
}

func TestFailedFlushRequeuesThenRetries(t *testing.T) {
	s := newTestStore(t, testOptions())
	ctx := context.Background()

	real := s.commit
	commitErr := errors.New("disk on fire")
	s.commit = func(context.Context, *pebble.Batch) error { return commitErr }

	s.Log("survivor", backend.Details{Level: backend.LevelWarning})
	if err := s.Flush(ctx); !errors.Is(err, commitErr) {
		t.Fatalf("flush error = %v, want %v", err, commitErr)
	}
	if got := s.PendingCount(); got != 1 {
		t.Fatalf("pending after failed flush = %d, want 1", got)
	}

	// Records queued after the failure stay behind the requeued batch.
	s.Log("later", backend.Details{Level: backend.LevelInfo})

	s.commit = real
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("retry flush: %v", err)
	}

	recs, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("exported %d records, want 2", len(recs))
	}
	if recs[0].Message != "survivor" || recs[1].Message != "later" {
		t.Fatalf("order after retry: %q, %q", recs[0].Message, recs[1].Message)
	}
}

func TestSequencesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	open := func() *Store {
		db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		return New(db, testOptions(), logpkg.NewNopLogger())
	}
	ctx := context.Background()

	s := open()
	s.Log("before restart", backend.Details{Level: backend.LevelInfo})
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s = open()
	defer s.Close()
	s.Log("after restart", backend.Details{Level: backend.LevelInfo})
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush after reopen: %v", err)
	}

	recs, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("exported %d records, want 2", len(recs))
	}
	if recs[0].Message != "before restart" || recs[1].Message != "after restart" {
		t.Fatalf("order across restart: %q, %q", recs[0].Message, recs[1].Message)
	}
}

func TestCloseFlushesAndRejectsFurtherWork(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s := New(db, testOptions(), logpkg.NewNopLogger())

	s.Log("last words", backend.Details{Level: backend.LevelInfo})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := s.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("flush after close = %v, want ErrClosed", err)
	}

	db, err = pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	s = New(db, testOptions(), logpkg.NewNopLogger())
	defer s.Close()

	recs, err := s.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(recs) != 1 || recs[0].Message != "last words" {
		t.Fatalf("close did not flush the queue: %+v", recs)
	}
}

func TestInertStoreQueuesButCannotCommit(t *testing.T) {
	openErr := errors.New("permission denied")
	s := NewInert(openErr, DefaultOptions(), logpkg.NewNopLogger())

	s.Log("queued anyway", backend.Details{Level: backend.LevelDebug})
	if got := s.PendingCount(); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}

	ctx := context.Background()
	if err := s.Flush(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("flush = %v, want ErrNotInitialized", err)
	}
	if _, err := s.Export(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("export = %v, want ErrNotInitialized", err)
	}
	if err := s.Prune(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("prune = %v, want ErrNotInitialized", err)
	}
	if _, err := s.Stats(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("stats = %v, want ErrNotInitialized", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStatsCountsVariantsAndLevels(t *testing.T) {
	opts := testOptions()
	opts.CompressionThreshold = 3
	opts.Codec = DefaultOptions().Codec
	s := newTestStore(t, opts)
	ctx := context.Background()

	s.Log("plain a", backend.Details{Level: backend.LevelError})
	s.Log("plain b", backend.Details{Level: backend.LevelError})
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	for i := 0; i < 3; i++ {
		s.Log("bulk", backend.Details{Level: backend.LevelInfo})
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.PlainEntries != 2 || st.CompressedEntries != 1 {
		t.Fatalf("entries = %d plain, %d compressed", st.PlainEntries, st.CompressedEntries)
	}
	if st.ByLevel[backend.LevelError] != 2 {
		t.Fatalf("error-level count = %d", st.ByLevel[backend.LevelError])
	}
	if st.LastSeq != 3 {
		t.Fatalf("last seq = %d, want 3", st.LastSeq)
	}
}
