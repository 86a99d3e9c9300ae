// Package runtime wires config, storage and a log backend into a single-node
// lumberjack instance. It exposes Open/Close, a health check and accessors
// for the live backend.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
//	rt.Backend().Log("started", backend.Details{Level: backend.LevelInfo})
package runtime
