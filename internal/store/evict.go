package store

import (
	"context"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"

	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

// deleteBatchLimit bounds how many entries one delete transaction carries, so
// eviction over a large store does not build a single huge batch.
const deleteBatchLimit = 1024

// Prune runs one eviction pass: an age sub-pass over the timestamp index and
// a count sub-pass over the primary entries. Both are best-effort and
// order-independent; a failure in one does not stop the other. It runs once
// at startup and can be re-triggered at any time, including while flushes are
// in flight (the two touch disjoint keys).
func (s *Store) Prune(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}

	aged, ageErr := s.pruneExpired(ctx)
	excess, countErr := s.pruneExcess(ctx)

	if aged > 0 || excess > 0 {
		s.logger.Info("eviction pass complete",
			logpkg.Int("expired", aged), logpkg.Int("excess", excess))
		lo, hi := EntryBounds()
		if err := s.db.CompactRange(lo, hi); err != nil {
			s.logger.Warn("compaction after eviction failed", logpkg.Err(err))
		}
	}
	return errors.Join(ageErr, countErr)
}

// pruneExpired deletes every entry whose indexed timestamp is older than
// now-Expire. The index is sorted, so this is a bounded prefix scan that
// never visits surviving entries. Skipped when Expire is zero (never expire).
func (s *Store) pruneExpired(ctx context.Context) (int, error) {
	if s.opts.Expire <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.opts.Expire).UnixMilli()

	lo, hi := TimeIndexBounds(cutoff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		b := s.db.NewBatch()
		n := 0
		for ok && n < deleteBatchLimit {
			_, seq := TimeIndexPosting(iter.Key())
			if err := s.deleteEntry(b, seq, iter.Key()); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if err := s.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted, err
		}
		b.Close()
	}
	return deleted, nil
}

// pruneExcess keeps only the MaxRecords most recent entries, walking the
// primary range in descending insertion order and deleting everything beyond
// the cap. Skipped when MaxRecords is zero (unbounded).
func (s *Store) pruneExcess(ctx context.Context) (int, error) {
	if s.opts.MaxRecords <= 0 {
		return 0, nil
	}

	lo, hi := EntryBounds()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	kept := 0
	deleted := 0
	for ok := iter.Last(); ok; {
		b := s.db.NewBatch()
		n := 0
		for ok && n < deleteBatchLimit {
			if kept < s.opts.MaxRecords {
				kept++
				ok = iter.Prev()
				continue
			}
			seq := SeqFromEntryKey(iter.Key())
			if err := s.deleteEntryByValue(b, seq, iter.Value()); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Prev()
		}
		if n == 0 {
			b.Close()
			continue
		}
		if err := s.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted, err
		}
		b.Close()
	}
	return deleted, nil
}

// deleteEntry removes an entry plus its index postings, resolving the entry
// value to find the level posting. tsKey is the already-known timestamp
// posting (from the age scan).
func (s *Store) deleteEntry(b *pebble.Batch, seq uint64, tsKey []byte) error {
	if err := b.Delete(append([]byte(nil), tsKey...), nil); err != nil {
		return err
	}
	val, err := s.db.Get(KeyEntry(seq))
	if err != nil {
		// Posting without an entry; drop the posting alone.
		return nil
	}
	if e, ok := DecodeEntry(val); ok && e.Kind == KindPlain {
		if err := b.Delete(KeyLevelIndex(e.Level, seq), nil); err != nil {
			return err
		}
	}
	return b.Delete(KeyEntry(seq), nil)
}

// deleteEntryByValue removes an entry plus its postings when the value is
// already at hand (from the count scan).
func (s *Store) deleteEntryByValue(b *pebble.Batch, seq uint64, val []byte) error {
	if e, ok := DecodeEntry(val); ok {
		if err := b.Delete(KeyTimeIndex(e.TimeMs, seq), nil); err != nil {
			return err
		}
		if e.Kind == KindPlain {
			if err := b.Delete(KeyLevelIndex(e.Level, seq), nil); err != nil {
				return err
			}
		}
	}
	return b.Delete(KeyEntry(seq), nil)
}
