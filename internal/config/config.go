package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/onshopfront/lumberjack/internal/codec"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Backend selects the persistence strategy: "store" (batched durable
	// store, default) or "stream" (append-only stream).
	Backend string       `json:"backend" yaml:"backend"`
	DataDir string       `json:"dataDir" yaml:"dataDir"`
	Store   StoreConfig  `json:"store" yaml:"store"`
	Stream  StreamConfig `json:"stream" yaml:"stream"`
	Log     LogConfig    `json:"log" yaml:"log"`
}

// StoreConfig configures the batched persistent store. ExpireMs and
// MaxRecords are pointers so an explicit null in the file means "never
// expire" / "unbounded", distinct from simply omitting the key.
type StoreConfig struct {
	ExpireMs             *int64 `json:"expire" yaml:"expire"`
	FlushIntervalMs      int64  `json:"flushInterval" yaml:"flushInterval"`
	CompressionThreshold int    `json:"compressionThreshold" yaml:"compressionThreshold"`
	MaxRecords           *int   `json:"maxRecords" yaml:"maxRecords"`
	Codec                string `json:"codec" yaml:"codec"`
	// Fsync is "always", "interval" or "never".
	Fsync string `json:"fsync" yaml:"fsync"`
}

// StreamConfig configures the append-only stream backend.
type StreamConfig struct {
	// Target is the path of the growable output file. Empty means
	// <dataDir>/capture.log.
	Target string `json:"target" yaml:"target"`
}

// LogConfig configures operational logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

// Default returns built-in defaults: batched store backend, 7-day expiry,
// 5s flush interval, compression from 10 records, 100k record cap, deflate.
func Default() Config {
	return Config{
		Backend: "store",
		DataDir: DefaultDataDir(),
		Store: StoreConfig{
			ExpireMs:             int64Ptr(7 * 24 * 60 * 60 * 1000),
			FlushIntervalMs:      5000,
			CompressionThreshold: 10,
			MaxRecords:           intPtr(100_000),
			Codec:                "deflate",
			Fsync:                "interval",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) over the
// defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the runtime cannot act on.
func (c Config) Validate() error {
	switch c.Backend {
	case "store", "stream":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Store.Fsync {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: unknown fsync mode %q", c.Store.Fsync)
	}
	if c.Store.Codec != "" && c.Store.Codec != "none" {
		if _, err := codec.ByName(c.Store.Codec); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.Store.FlushIntervalMs < 0 {
		return fmt.Errorf("config: negative flush interval")
	}
	if c.Store.ExpireMs != nil && *c.Store.ExpireMs < 0 {
		return fmt.Errorf("config: negative expire")
	}
	if c.Store.MaxRecords != nil && *c.Store.MaxRecords < 0 {
		return fmt.Errorf("config: negative max records")
	}
	return nil
}

// StreamTarget resolves the stream backend's output path.
func (c Config) StreamTarget() string {
	if c.Stream.Target != "" {
		return c.Stream.Target
	}
	return filepath.Join(c.DataDir, "capture.log")
}
