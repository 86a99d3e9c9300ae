package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays LUMBERJACK_* environment variables onto cfg. The nullable
// knobs accept "null" (and "never"/"unbounded") to clear a file-configured
// value.
func FromEnv(cfg *Config) {
	if v := os.Getenv("LUMBERJACK_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("LUMBERJACK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LUMBERJACK_STORE_EXPIRE_MS"); v != "" {
		if isNull(v, "never") {
			cfg.Store.ExpireMs = nil
		} else if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Store.ExpireMs = &n
		}
	}
	if v := os.Getenv("LUMBERJACK_STORE_FLUSH_INTERVAL_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Store.FlushIntervalMs = n
		}
	}
	if v := os.Getenv("LUMBERJACK_STORE_COMPRESSION_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.CompressionThreshold = n
		}
	}
	if v := os.Getenv("LUMBERJACK_STORE_MAX_RECORDS"); v != "" {
		if isNull(v, "unbounded") {
			cfg.Store.MaxRecords = nil
		} else if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.MaxRecords = &n
		}
	}
	if v := os.Getenv("LUMBERJACK_STORE_CODEC"); v != "" {
		cfg.Store.Codec = strings.ToLower(v)
	}
	if v := os.Getenv("LUMBERJACK_STORE_FSYNC"); v != "" {
		cfg.Store.Fsync = strings.ToLower(v)
	}
	if v := os.Getenv("LUMBERJACK_STREAM_TARGET"); v != "" {
		cfg.Stream.Target = v
	}
	if v := os.Getenv("LUMBERJACK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LUMBERJACK_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func isNull(v, alias string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "null" || v == alias
}
