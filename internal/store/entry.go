package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/valyala/fastjson"

	"github.com/onshopfront/lumberjack/internal/backend"
)

// EntryKind tags a durable value so reads resolve the variant once instead
// of probing its structure.
type EntryKind byte

const (
	// KindPlain marks an entry holding one JSON-encoded record.
	KindPlain EntryKind = 1
	// KindCompressed marks an entry holding a codec-compressed JSON array of
	// records from one flush batch.
	KindCompressed EntryKind = 2
)

// levelNone is the level byte stored on compressed entries, which span levels.
const levelNone byte = 0xFF

// Entry framing: kind(1B) | ts_be8 | level(1B) | codec(1B) | payload | crc32c(4B).
// The crc covers everything before it.

const entryHeaderLen = 1 + 8 + 1 + 1

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Entry is a decoded durable value.
type Entry struct {
	Kind    EntryKind
	TimeMs  int64
	Level   byte
	CodecID byte
	Payload []byte
}

// EncodeEntry frames a durable value.
func EncodeEntry(kind EntryKind, tsMs int64, level byte, codecID byte, payload []byte) []byte {
	out := make([]byte, 0, entryHeaderLen+len(payload)+4)
	out = append(out, byte(kind))
	out = appendBE8(out, uint64(tsMs))
	out = append(out, level, codecID)
	out = append(out, payload...)

	crc := crc32.Checksum(out, castagnoli)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// DecodeEntry parses and crc-checks a durable value.
func DecodeEntry(b []byte) (Entry, bool) {
	if len(b) < entryHeaderLen+4 {
		return Entry{}, false
	}
	body := b[:len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Checksum(body, castagnoli) != expect {
		return Entry{}, false
	}
	kind := EntryKind(body[0])
	if kind != KindPlain && kind != KindCompressed {
		return Entry{}, false
	}
	return Entry{
		Kind:    kind,
		TimeMs:  int64(binary.BigEndian.Uint64(body[1:9])),
		Level:   body[9],
		CodecID: body[10],
		Payload: append([]byte(nil), body[entryHeaderLen:]...),
	}, true
}

// durableRecord is the JSON schema of a stored record. A compressed entry's
// payload decompresses to a JSON array of these.
type durableRecord struct {
	Timestamp  int64    `json:"timestamp"`
	Arguments  []string `json:"arguments,omitempty"`
	Namespaces []string `json:"namespaces,omitempty"`
	Level      string   `json:"level"`
	ContextID  string   `json:"contextId,omitempty"`
	Message    string   `json:"message"`
}

func toDurable(r backend.Record) durableRecord {
	return durableRecord{
		Timestamp:  r.Time.UnixMilli(),
		Arguments:  r.Arguments,
		Namespaces: r.Namespaces,
		Level:      r.Level.String(),
		ContextID:  r.ContextID,
		Message:    r.Message,
	}
}

func encodePlain(r backend.Record) ([]byte, error) {
	return json.Marshal(toDurable(r))
}

func encodeBatch(recs []backend.Record) ([]byte, error) {
	durables := make([]durableRecord, len(recs))
	for i, r := range recs {
		durables[i] = toDurable(r)
	}
	return json.Marshal(durables)
}

// recordFromValue rebuilds a Record from a parsed durable JSON object.
func recordFromValue(v *fastjson.Value) (backend.Record, error) {
	level, err := backend.ParseLevel(string(v.GetStringBytes("level")))
	if err != nil {
		return backend.Record{}, err
	}
	rec := backend.Record{
		Message:   string(v.GetStringBytes("message")),
		Time:      time.UnixMilli(v.GetInt64("timestamp")),
		Level:     level,
		ContextID: string(v.GetStringBytes("contextId")),
	}
	for _, a := range v.GetArray("arguments") {
		s, err := a.StringBytes()
		if err != nil {
			return backend.Record{}, fmt.Errorf("store: malformed argument: %w", err)
		}
		rec.Arguments = append(rec.Arguments, string(s))
	}
	for _, n := range v.GetArray("namespaces") {
		s, err := n.StringBytes()
		if err != nil {
			return backend.Record{}, fmt.Errorf("store: malformed namespace: %w", err)
		}
		rec.Namespaces = append(rec.Namespaces, string(s))
	}
	return rec, nil
}

// decodePlain parses one plain entry payload.
func decodePlain(p *fastjson.Parser, payload []byte) (backend.Record, error) {
	v, err := p.ParseBytes(payload)
	if err != nil {
		return backend.Record{}, fmt.Errorf("store: malformed record: %w", err)
	}
	return recordFromValue(v)
}

// decodeBatch parses a decompressed batch payload into its records, order
// preserved.
func decodeBatch(p *fastjson.Parser, payload []byte) ([]backend.Record, error) {
	v, err := p.ParseBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("store: malformed batch: %w", err)
	}
	arr, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("store: batch is not an array: %w", err)
	}
	recs := make([]backend.Record, 0, len(arr))
	for _, item := range arr {
		rec, err := recordFromValue(item)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
