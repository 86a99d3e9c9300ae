package store

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - lj/m/seq               (store metadata: last assigned sequence)
// - lj/e/{seq_be8}         (durable entries, insertion order)
// - lj/x/t/{ts_be8}{seq_be8}   (timestamp index postings)
// - lj/x/l/{lvl_1B}{seq_be8}   (level index postings, plain entries only)

var (
	keyMetaSeq       = []byte("lj/m/seq")
	entryPrefix      = []byte("lj/e/")
	timeIndexPrefix  = []byte("lj/x/t/")
	levelIndexPrefix = []byte("lj/x/l/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyEntry builds the primary entry key with a big-endian sequence so byte
// order matches insertion order.
func KeyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	return appendBE8(k, seq)
}

// SeqFromEntryKey extracts the sequence from an entry key.
func SeqFromEntryKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}

// KeyTimeIndex builds a timestamp index posting. The trailing sequence keeps
// postings unique when many entries share a millisecond.
func KeyTimeIndex(tsMs int64, seq uint64) []byte {
	k := make([]byte, 0, len(timeIndexPrefix)+16)
	k = append(k, timeIndexPrefix...)
	k = appendBE8(k, uint64(tsMs))
	return appendBE8(k, seq)
}

// TimeIndexPosting decodes a timestamp index key.
func TimeIndexPosting(k []byte) (tsMs int64, seq uint64) {
	p := k[len(timeIndexPrefix):]
	return int64(binary.BigEndian.Uint64(p[:8])), binary.BigEndian.Uint64(p[8:16])
}

// KeyLevelIndex builds a level index posting.
func KeyLevelIndex(level byte, seq uint64) []byte {
	k := make([]byte, 0, len(levelIndexPrefix)+9)
	k = append(k, levelIndexPrefix...)
	k = append(k, level)
	return appendBE8(k, seq)
}

// EntryBounds returns the [lower, upper) iteration bounds covering every
// durable entry.
func EntryBounds() (lo, hi []byte) {
	lo = KeyEntry(0)
	hi = append(KeyEntry(^uint64(0)), 0x00)
	return lo, hi
}

// TimeIndexBounds returns [lower, upper) covering postings strictly older
// than cutoffMs. The index is sorted, so age eviction is a prefix scan that
// stops at the cutoff by construction.
func TimeIndexBounds(cutoffMs int64) (lo, hi []byte) {
	lo = KeyTimeIndex(0, 0)
	hi = KeyTimeIndex(cutoffMs, 0)
	return lo, hi
}

// LevelIndexBounds returns [lower, upper) covering every posting for one level.
func LevelIndexBounds(level byte) (lo, hi []byte) {
	lo = KeyLevelIndex(level, 0)
	hi = append(KeyLevelIndex(level, ^uint64(0)), 0x00)
	return lo, hi
}
