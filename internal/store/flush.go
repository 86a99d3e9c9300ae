package store

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/onshopfront/lumberjack/internal/backend"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

// Flush implements backend.Backend: it forces the pending queue to durable
// storage now and returns the outcome of that attempt.
//
// Commit is all-or-nothing: a pebble batch that fails to commit writes none
// of its keys, so requeueing the entire original batch cannot duplicate
// records.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.flush(ctx)
}

// flush runs one flush cycle. The pending queue is swapped out atomically
// before the write, so records arriving during the commit belong to the next
// cycle and are never lost with this one.
func (s *Store) flush(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := s.commitRecords(ctx, batch); err != nil {
		// Restore the failed batch ahead of anything queued since; the next
		// cycle retries it first.
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		s.logger.Error("flush failed; batch requeued",
			logpkg.Int("records", len(batch)), logpkg.Err(err))
		return err
	}

	s.logger.Debug("flush committed", logpkg.Int("records", len(batch)))
	return nil
}

// commitRecords writes one batch as a single durable transaction: either one
// compressed entry for the whole batch, or one plain entry per record, plus
// index postings and the sequence high-water mark.
func (s *Store) commitRecords(ctx context.Context, recs []backend.Record) error {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	lastSeq := s.lastSeq
	nextSeq := func() uint64 { lastSeq++; return lastSeq }

	if s.opts.Codec != nil && len(recs) >= s.opts.CompressionThreshold {
		if err := s.addCompressed(b, nextSeq(), recs); err != nil {
			return err
		}
	} else {
		for _, rec := range recs {
			if err := addPlain(b, nextSeq(), rec); err != nil {
				return err
			}
		}
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], lastSeq)
	if err := b.Set(keyMetaSeq, meta[:], nil); err != nil {
		return err
	}

	if err := s.commit(ctx, b); err != nil {
		return err
	}
	s.lastSeq = lastSeq
	return nil
}

func addPlain(b *pebble.Batch, seq uint64, rec backend.Record) error {
	payload, err := encodePlain(rec)
	if err != nil {
		return err
	}
	tsMs := rec.Time.UnixMilli()
	level := byte(rec.Level)
	if err := b.Set(KeyEntry(seq), EncodeEntry(KindPlain, tsMs, level, 0, payload), nil); err != nil {
		return err
	}
	if err := b.Set(KeyTimeIndex(tsMs, seq), nil, nil); err != nil {
		return err
	}
	return b.Set(KeyLevelIndex(level, seq), nil, nil)
}

// addCompressed serializes the whole batch to one JSON array, compresses it
// and stores it as a single entry stamped with the flush time.
func (s *Store) addCompressed(b *pebble.Batch, seq uint64, recs []backend.Record) error {
	payload, err := encodeBatch(recs)
	if err != nil {
		return err
	}
	blob, err := s.opts.Codec.Compress(payload)
	if err != nil {
		return err
	}
	flushTs := time.Now().UnixMilli()
	if err := b.Set(KeyEntry(seq), EncodeEntry(KindCompressed, flushTs, levelNone, s.opts.Codec.ID(), blob), nil); err != nil {
		return err
	}
	return b.Set(KeyTimeIndex(flushTs, seq), nil, nil)
}
