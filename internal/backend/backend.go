// Package backend defines the contract every log persistence backend
// implements, along with the record model that flows from capture facades
// into the backends.
//
// A facade renders the final message text, tracks the active group stack,
// and calls Log. Everything after that call — queueing, batching, durable
// commits, retries — is the backend's business and never surfaces back
// through Log.
package backend

import (
	"context"
	"time"
)

// Backend is the capability set every storage backend exposes.
type Backend interface {
	// Log accepts one record synchronously. It must return immediately,
	// never block on I/O, and never fail to the caller; internal failures
	// are deferred to the backend's own retry path.
	Log(message string, details Details)

	// Flush forces buffered-but-not-yet-durable records to be persisted
	// now. It returns once the attempt completes; a non-nil error is the
	// recorded failure of that attempt. Callers may invoke it
	// opportunistically (for example on teardown) but normal operation
	// must not depend on it.
	Flush(ctx context.Context) error

	// Close stops the backend's own timers, performs a final flush attempt
	// and releases the underlying store.
	Close() error
}

// Details carries the capture-time metadata accompanying a message.
type Details struct {
	// Time is the capture instant. Zero means "now".
	Time time.Time
	// Arguments are the original positional values of the log call. They
	// are serialized to JSON-safe scalars before durable storage; live
	// references never reach the store.
	Arguments []interface{}
	// Namespaces is the active group stack at capture time, outer first.
	Namespaces []string
	// Level is the record severity.
	Level Level
	// ContextID is an opaque correlation identifier set by the facade.
	ContextID string
}

// Record is the self-contained unit flowing through a backend: all fields
// are plain values, safe to hold across flush cycles.
type Record struct {
	Message    string
	Time       time.Time
	Arguments  []string
	Namespaces []string
	Level      Level
	ContextID  string
}

// NewRecord builds a Record from a facade call, serializing every argument
// independently. It never panics; unserializable values degrade to strings.
func NewRecord(message string, details Details) Record {
	ts := details.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var args []string
	if len(details.Arguments) > 0 {
		args = make([]string, len(details.Arguments))
		for i, a := range details.Arguments {
			args[i] = SerializeArgument(a)
		}
	}
	return Record{
		Message:    message,
		Time:       ts,
		Arguments:  args,
		Namespaces: append([]string(nil), details.Namespaces...),
		Level:      details.Level,
		ContextID:  details.ContextID,
	}
}
