package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/onshopfront/lumberjack/internal/backend"
	"github.com/onshopfront/lumberjack/internal/codec"
	cfgpkg "github.com/onshopfront/lumberjack/internal/config"
	pebblestore "github.com/onshopfront/lumberjack/internal/storage/pebble"
	"github.com/onshopfront/lumberjack/internal/store"
	"github.com/onshopfront/lumberjack/internal/stream"
	"github.com/onshopfront/lumberjack/pkg/id"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
	// Metrics overrides the storage metrics hook. Nil installs a
	// PrometheusMetrics reachable through Collector.
	Metrics pebblestore.MetricsHook
}

// Runtime wires config, storage and a log backend for a single-node
// instance. Exactly one of the two backends is live; Backend returns it
// behind the common contract.
type Runtime struct {
	config     cfgpkg.Config
	logger     logpkg.Logger
	instanceID id.ID

	store   *store.Store
	stream  *stream.Stream
	metrics *pebblestore.PrometheusMetrics
}

// Open builds the backend selected by the configuration. A durable store
// that fails to open does not fail Open: the runtime comes up with an inert
// store that queues records without committing, and the failure is logged.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return nil, err
		}
	}

	rt := &Runtime{
		config:     cfg,
		logger:     logger,
		instanceID: id.NewGenerator().Next(),
	}
	logger = logger.With(logpkg.Str("instance", rt.instanceID.String()))
	rt.logger = logger

	switch cfg.Backend {
	case "stream":
		if err := os.MkdirAll(filepath.Dir(cfg.StreamTarget()), 0o755); err != nil {
			return nil, err
		}
		st, err := stream.Open(cfg.StreamTarget(), logger)
		if err != nil {
			return nil, err
		}
		rt.stream = st
		logger.Info("stream backend open", logpkg.Str("target", cfg.StreamTarget()))
		return rt, nil

	default:
		storeOpts, err := storeOptions(cfg.Store)
		if err != nil {
			return nil, err
		}

		metrics := opts.Metrics
		if metrics == nil {
			rt.metrics = pebblestore.NewPrometheusMetrics("lumberjack")
			metrics = rt.metrics
		}

		db, openErr := pebblestore.Open(pebblestore.Options{
			DataDir: filepath.Join(cfg.DataDir, "store"),
			Fsync:   fsyncMode(cfg.Store.Fsync),
			Metrics: metrics,
		})
		if openErr != nil {
			rt.store = store.NewInert(openErr, storeOpts, logger)
			return rt, nil
		}
		rt.store = store.New(db, storeOpts, logger)
		logger.Info("batched store open", logpkg.Str("dataDir", cfg.DataDir))
		return rt, nil
	}
}

// Backend returns the live backend behind the common contract.
func (r *Runtime) Backend() backend.Backend {
	if r.stream != nil {
		return r.stream
	}
	return r.store
}

// Store returns the batched store, or nil when the stream backend is live.
func (r *Runtime) Store() *store.Store { return r.store }

// Stream returns the stream backend, or nil when the batched store is live.
func (r *Runtime) Stream() *stream.Stream { return r.stream }

// Collector returns the storage metrics collector for host registration, or
// nil when a custom hook was supplied or the stream backend is live.
func (r *Runtime) Collector() *pebblestore.PrometheusMetrics { return r.metrics }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the instance-scoped operational logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// InstanceID identifies this runtime in operational logs.
func (r *Runtime) InstanceID() id.ID { return r.instanceID }

// CheckHealth verifies the live backend can accept a flush.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	b := r.Backend()
	if b == nil {
		return errors.New("runtime: no backend")
	}
	return b.Flush(ctx)
}

// Close flushes and closes the live backend.
func (r *Runtime) Close() error {
	if b := r.Backend(); b != nil {
		return b.Close()
	}
	return nil
}

// storeOptions maps the file configuration onto store options. Nil pointers
// carry the "never expire" / "unbounded" meaning as zero values.
func storeOptions(c cfgpkg.StoreConfig) (store.Options, error) {
	opts := store.DefaultOptions()
	if c.ExpireMs == nil {
		opts.Expire = 0
	} else {
		opts.Expire = time.Duration(*c.ExpireMs) * time.Millisecond
	}
	if c.FlushIntervalMs > 0 {
		opts.FlushInterval = time.Duration(c.FlushIntervalMs) * time.Millisecond
	}
	if c.CompressionThreshold > 0 {
		opts.CompressionThreshold = c.CompressionThreshold
	}
	if c.MaxRecords == nil {
		opts.MaxRecords = 0
	} else {
		opts.MaxRecords = *c.MaxRecords
	}
	switch c.Codec {
	case "":
	case "none":
		opts.Codec = nil
	default:
		cd, err := codec.ByName(c.Codec)
		if err != nil {
			return store.Options{}, err
		}
		opts.Codec = cd
	}
	return opts, nil
}

func fsyncMode(s string) pebblestore.FsyncMode {
	switch s {
	case "always":
		return pebblestore.FsyncModeAlways
	case "never":
		return pebblestore.FsyncModeNever
	default:
		return pebblestore.FsyncModeInterval
	}
}
