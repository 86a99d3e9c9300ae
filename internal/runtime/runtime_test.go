package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/onshopfront/lumberjack/internal/backend"
	cfgpkg "github.com/onshopfront/lumberjack/internal/config"
	"github.com/onshopfront/lumberjack/internal/store"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

func testConfig(t *testing.T) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.Fsync = "never"
	return cfg
}

func TestOpenStoreBackendRoundTrip(t *testing.T) {
	rt, err := Open(Options{Config: testConfig(t), Logger: logpkg.NewNopLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	if rt.Store() == nil || rt.Stream() != nil {
		t.Fatal("expected the batched store backend")
	}
	if rt.Collector() == nil {
		t.Fatal("expected a default metrics collector")
	}

	ctx := context.Background()
	rt.Backend().Log("runtime smoke", backend.Details{Level: backend.LevelInfo})
	if err := rt.Backend().Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	recs, err := rt.Store().Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(recs) != 1 || recs[0].Message != "runtime smoke" {
		t.Fatalf("export = %+v", recs)
	}
	if err := rt.CheckHealth(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestOpenStreamBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = "stream"
	rt, err := Open(Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if rt.Stream() == nil || rt.Store() != nil {
		t.Fatal("expected the stream backend")
	}
	rt.Backend().Log("to the file", backend.Details{Level: backend.LevelNotice})
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(cfg.StreamTarget())
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("stream target is empty")
	}
}

func TestOpenFailureYieldsInertStore(t *testing.T) {
	// A file where the data dir should be makes the durable open fail.
	blocker := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg := testConfig(t)
	cfg.DataDir = blocker

	rt, err := Open(Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	if err != nil {
		t.Fatalf("open should not fail outright: %v", err)
	}
	defer rt.Close()

	rt.Backend().Log("queued only", backend.Details{Level: backend.LevelError})
	if err := rt.Backend().Flush(context.Background()); !errors.Is(err, store.ErrNotInitialized) {
		t.Fatalf("flush = %v, want ErrNotInitialized", err)
	}
	if got := rt.Store().PendingCount(); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = "telegraph"
	if _, err := Open(Options{Config: cfg, Logger: logpkg.NewNopLogger()}); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestStoreOptionsMapping(t *testing.T) {
	ms := int64(60_000)
	n := 5
	opts, err := storeOptions(cfgpkg.StoreConfig{
		ExpireMs:             &ms,
		FlushIntervalMs:      250,
		CompressionThreshold: 3,
		MaxRecords:           &n,
		Codec:                "snappy",
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if opts.Expire.Milliseconds() != 60_000 || opts.FlushInterval.Milliseconds() != 250 {
		t.Fatalf("durations = %v, %v", opts.Expire, opts.FlushInterval)
	}
	if opts.CompressionThreshold != 3 || opts.MaxRecords != 5 {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.Codec == nil || opts.Codec.Name() != "snappy" {
		t.Fatalf("codec = %v", opts.Codec)
	}

	opts, err = storeOptions(cfgpkg.StoreConfig{Codec: "none"})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if opts.Expire != 0 || opts.MaxRecords != 0 {
		t.Fatalf("nil pointers should mean never/unbounded, got %+v", opts)
	}
	if opts.Codec != nil {
		t.Fatal("codec none should disable compression")
	}
}
