package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/onshopfront/lumberjack/internal/backend"
	"github.com/onshopfront/lumberjack/internal/codec"
	pebblestore "github.com/onshopfront/lumberjack/internal/storage/pebble"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

var (
	// ErrNotInitialized is returned by Flush/Export/Prune when the durable
	// store never opened. Log keeps queueing on such a store, but nothing can
	// commit.
	ErrNotInitialized = errors.New("store: not initialized")
	// ErrClosed is returned once Close has run.
	ErrClosed = errors.New("store: closed")
)

// Options configures a batched persistent store. DefaultOptions supplies the
// standard values; the zero value of Expire means "never expire" and the zero
// value of MaxRecords means "unbounded".
type Options struct {
	// Expire makes records older than now-Expire eligible for pruning.
	Expire time.Duration
	// FlushInterval is the period of the automatic flush cycle.
	FlushInterval time.Duration
	// CompressionThreshold is the minimum batch record count that triggers
	// compressing the batch into a single durable entry.
	CompressionThreshold int
	// MaxRecords caps the durable entry count; the oldest beyond the cap are
	// pruned.
	MaxRecords int
	// Codec compresses qualifying batches. Nil disables compression.
	Codec codec.Codec
}

// DefaultOptions returns the standard configuration: 7-day expiry, 5s flush
// interval, compression from 10 records per batch, 100k record cap, deflate.
func DefaultOptions() Options {
	return Options{
		Expire:               7 * 24 * time.Hour,
		FlushInterval:        5 * time.Second,
		CompressionThreshold: 10,
		MaxRecords:           100_000,
		Codec:                codec.Default(),
	}
}

func (o *Options) sanitize() {
	if o.FlushInterval <= 0 {
		o.FlushInterval = 5 * time.Second
	}
	if o.CompressionThreshold <= 0 {
		o.CompressionThreshold = 10
	}
	if o.Expire < 0 {
		o.Expire = 0
	}
	if o.MaxRecords < 0 {
		o.MaxRecords = 0
	}
}

// Store is the batched persistent backend: records queue in memory and a
// periodic flush cycle commits them to the durable keyed store as a batch,
// compressed when large enough. The store owns the DB handle it is given and
// closes it on Close.
type Store struct {
	db     *pebblestore.DB
	opts   Options
	logger logpkg.Logger

	mu      sync.Mutex
	pending []backend.Record
	closed  bool

	// seqMu guards sequence allocation and serializes commits so the meta
	// high-water mark can never regress across overlapping flushes.
	seqMu   sync.Mutex
	lastSeq uint64

	initErr error

	// commit is the durable transaction seam; tests substitute it to model
	// transient I/O failure.
	commit func(ctx context.Context, b *pebble.Batch) error

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

var _ backend.Backend = (*Store)(nil)

// New opens a batched store over db, runs the startup eviction pass and arms
// the periodic flush. db must be non-nil; use NewInert when opening the
// durable store failed.
func New(db *pebblestore.DB, opts Options, logger logpkg.Logger) *Store {
	opts.sanitize()
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	s := &Store{
		db:     db,
		opts:   opts,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	s.commit = db.CommitBatch

	if meta, err := db.Get(keyMetaSeq); err == nil && len(meta) >= 8 {
		s.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}

	// Startup eviction is best-effort; a failure must not keep the store
	// from accepting records.
	if err := s.Prune(context.Background()); err != nil {
		s.logger.Error("startup eviction failed", logpkg.Err(err))
	}

	go s.flushLoop()
	return s
}

// NewInert builds a store whose durable medium never opened. Log still
// queues; Flush, Export and Prune report ErrNotInitialized. The open failure
// is reported once on the operational logger.
func NewInert(openErr error, opts Options, logger logpkg.Logger) *Store {
	opts.sanitize()
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	logger.Error("durable store unavailable; records will queue without committing", logpkg.Err(openErr))
	return &Store{
		opts:    opts,
		logger:  logger,
		initErr: fmt.Errorf("%w: %v", ErrNotInitialized, openErr),
		stopCh:  make(chan struct{}),
		doneCh:  nil,
	}
}

// Log implements backend.Backend. It serializes the call's arguments and
// appends the record to the pending queue in O(1); it never blocks on I/O.
func (s *Store) Log(message string, details backend.Details) {
	rec := backend.NewRecord(message, details)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = append(s.pending, rec)
}

// PendingCount reports the records queued but not yet durable.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops the periodic flush, attempts one final flush and closes the
// underlying store. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.doneCh != nil {
		<-s.doneCh
	}

	var flushErr error
	if s.initErr == nil {
		flushErr = s.flush(context.Background())
		if flushErr != nil {
			s.logger.Error("final flush failed; queued records lost", logpkg.Err(flushErr))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
	}
	return flushErr
}

func (s *Store) flushLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Errors are already logged and the batch requeued; the next
			// tick retries.
			_ = s.flush(context.Background())
		case <-s.stopCh:
			return
		}
	}
}
