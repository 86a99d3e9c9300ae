// Package log provides lumberjack's operational logging facade.
//
// This is the logger the storage backends use to report their own behavior
// (flush failures, eviction results, startup errors). It is never the
// captured application log stream; captured records flow through the backend
// packages instead.
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the standard
// library slog via a custom handler that preserves the formatter/output
// pipeline, so output stays consistent across the codebase while slog
// handlers remain usable for cross-cutting concerns.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("store"))
//	l.Info("flush committed", log.Int("records", 42))
//
// Use ApplyConfig to build a logger from a declarative Config (level plus
// text/json format), and RedirectStdLog to route stdlib log output (for
// example from Pebble) through the same pipeline.
package log
