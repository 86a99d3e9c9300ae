package pebblestore

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRegistersAndCollects(t *testing.T) {
	m := NewPrometheusMetrics("lumberjack_test")
	reg := prometheus.NewRegistry()
	if err := reg.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}

	m.ObserveWrite(2*time.Millisecond, 10)
	m.ObserveRead(1*time.Millisecond, 5)
	m.ObserveBatchCommit(3*time.Millisecond, 4, 100)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 7 {
		t.Fatalf("expected 7 metric families, got %d", len(families))
	}
}

func TestPrometheusMetricsAsHook(t *testing.T) {
	dir := t.TempDir()
	m := NewPrometheusMetrics("lumberjack_hook")
	db, err := Open(Options{DataDir: dir, Fsync: FsyncModeNever, Metrics: m})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := db.Get([]byte("k")); err != nil {
		t.Fatalf("get: %v", err)
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected gathered metrics after db activity")
	}
}
