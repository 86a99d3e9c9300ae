package store

import (
	"reflect"
	"testing"
	"time"

	"github.com/valyala/fastjson"

	"github.com/onshopfront/lumberjack/internal/backend"
)

func TestEntryFramingRoundTrip(t *testing.T) {
	payload := []byte(`{"message":"hello"}`)
	enc := EncodeEntry(KindPlain, 1700000000000, byte(backend.LevelInfo), 0, payload)

	e, ok := DecodeEntry(enc)
	if !ok {
		t.Fatal("decode rejected a freshly encoded entry")
	}
	if e.Kind != KindPlain || e.TimeMs != 1700000000000 || e.Level != byte(backend.LevelInfo) || e.CodecID != 0 {
		t.Fatalf("decoded header mismatch: %+v", e)
	}
	if string(e.Payload) != string(payload) {
		t.Fatalf("payload = %q", e.Payload)
	}
}

func TestDecodeEntryRejectsCorruption(t *testing.T) {
	enc := EncodeEntry(KindCompressed, 1, levelNone, 4, []byte("blob"))

	flipped := append([]byte(nil), enc...)
	flipped[len(flipped)/2] ^= 0x01
	if _, ok := DecodeEntry(flipped); ok {
		t.Fatal("decode accepted a corrupt entry")
	}

	if _, ok := DecodeEntry(enc[:entryHeaderLen]); ok {
		t.Fatal("decode accepted a truncated entry")
	}

	unknown := EncodeEntry(EntryKind(9), 1, 0, 0, nil)
	if _, ok := DecodeEntry(unknown); ok {
		t.Fatal("decode accepted an unknown kind")
	}
}

func TestPlainRecordRoundTrip(t *testing.T) {
	rec := backend.Record{
		Message:    "user created",
		Time:       time.UnixMilli(1700000000123),
		Arguments:  []string{`{"id":7}`, "retry"},
		Namespaces: []string{"api", "users"},
		Level:      backend.LevelNotice,
		ContextID:  "abc123",
	}

	payload, err := encodePlain(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var p fastjson.Parser
	got, err := decodePlain(&p, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Time.Equal(rec.Time) {
		t.Fatalf("time = %v, want %v", got.Time, rec.Time)
	}
	got.Time = rec.Time
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

func TestBatchRoundTripPreservesOrder(t *testing.T) {
	recs := make([]backend.Record, 5)
	for i := range recs {
		recs[i] = backend.Record{
			Message: string(rune('a' + i)),
			Time:    time.UnixMilli(int64(1000 + i)),
			Level:   backend.LevelDebug,
		}
	}

	payload, err := encodeBatch(recs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var p fastjson.Parser
	got, err := decodeBatch(&p, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("decoded %d records, want %d", len(got), len(recs))
	}
	for i := range recs {
		if got[i].Message != recs[i].Message {
			t.Fatalf("record %d out of order: %q", i, got[i].Message)
		}
	}
}

func TestDecodePlainRejectsBadLevel(t *testing.T) {
	var p fastjson.Parser
	if _, err := decodePlain(&p, []byte(`{"message":"x","level":"SHOUTING","timestamp":1}`)); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
