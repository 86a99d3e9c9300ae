package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/valyala/fastjson"

	"github.com/onshopfront/lumberjack/internal/backend"
	"github.com/onshopfront/lumberjack/internal/codec"
)

// defaultExportBatchSize is the dispatch granularity of ExportBatch when the
// caller passes zero.
const defaultExportBatchSize = 100

// exportIterator walks durable entries in insertion order and yields records
// one at a time, expanding compressed batch entries inline so callers see a
// flat stream. Decompression happens lazily, only when the cursor reaches a
// compressed entry.
type exportIterator struct {
	iter   *pebble.Iterator
	parser fastjson.Parser

	// expanded holds the remaining records of the compressed entry currently
	// being drained.
	expanded []backend.Record
	err      error
	started  bool
}

func (s *Store) newExportIterator() (*exportIterator, error) {
	lo, hi := EntryBounds()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	return &exportIterator{iter: iter}, nil
}

// Next returns the next record. It reports false at the end of the range or
// on the first error; check Err afterwards.
func (it *exportIterator) Next() (backend.Record, bool) {
	for {
		if len(it.expanded) > 0 {
			rec := it.expanded[0]
			it.expanded = it.expanded[1:]
			return rec, true
		}

		var ok bool
		if !it.started {
			ok = it.iter.First()
			it.started = true
		} else {
			ok = it.iter.Next()
		}
		if !ok {
			it.err = it.iter.Error()
			return backend.Record{}, false
		}

		e, ok := DecodeEntry(it.iter.Value())
		if !ok {
			it.err = fmt.Errorf("store: corrupt entry at seq %d", SeqFromEntryKey(it.iter.Key()))
			return backend.Record{}, false
		}

		switch e.Kind {
		case KindPlain:
			rec, err := decodePlain(&it.parser, e.Payload)
			if err != nil {
				it.err = err
				return backend.Record{}, false
			}
			return rec, true
		case KindCompressed:
			c, err := codec.ByID(e.CodecID)
			if err != nil {
				it.err = err
				return backend.Record{}, false
			}
			raw, err := c.Decompress(e.Payload)
			if err != nil {
				it.err = fmt.Errorf("store: decompress entry: %w", err)
				return backend.Record{}, false
			}
			recs, err := decodeBatch(&it.parser, raw)
			if err != nil {
				it.err = err
				return backend.Record{}, false
			}
			it.expanded = recs
		}
	}
}

func (it *exportIterator) Err() error   { return it.err }
func (it *exportIterator) Close() error { return it.iter.Close() }

// Export materializes every durable record in insertion order. Records still
// in the pending queue are not included; flush first to see them.
func (s *Store) Export(ctx context.Context) ([]backend.Record, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}

	it, err := s.newExportIterator()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []backend.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out, it.Err()
}

// ExportBatch streams durable records to fn in groups of batchSize (default
// 100), each group dispatched on its own goroutine so a slow consumer does
// not stall the cursor. Every record is delivered to exactly one call. The
// call returns after all dispatched groups complete; the first consumer
// error, and any cursor error, fail the whole operation.
func (s *Store) ExportBatch(ctx context.Context, fn func(recs []backend.Record) error, batchSize int) error {
	if s.initErr != nil {
		return s.initErr
	}
	if batchSize <= 0 {
		batchSize = defaultExportBatchSize
	}

	it, err := s.newExportIterator()
	if err != nil {
		return err
	}
	defer it.Close()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	dispatch := func(recs []backend.Record) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(recs); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}

	buf := make([]backend.Record, 0, batchSize)
	for {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		rec, ok := it.Next()
		if !ok {
			break
		}
		buf = append(buf, rec)
		if len(buf) == batchSize {
			dispatch(buf)
			buf = make([]backend.Record, 0, batchSize)
		}
	}
	if len(buf) > 0 {
		dispatch(buf)
	}
	wg.Wait()

	if err := it.Err(); err != nil {
		return err
	}
	return firstErr
}
