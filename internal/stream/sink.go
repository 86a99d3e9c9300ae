package stream

import (
	"bufio"
	"os"
)

// Sink is a growable durable output stream. A sink signals readiness once,
// may refuse a write while saturated and announces recovery through Drain.
type Sink interface {
	// Ready returns a channel closed once the sink can accept writes.
	Ready() <-chan struct{}
	// Write appends p. accepted reports false when the sink is saturated;
	// the caller must hold its data and wait for Drain before retrying.
	Write(p []byte) (accepted bool, err error)
	// Drain returns a channel that signals after saturation clears.
	Drain() <-chan struct{}
	Close() error
}

var alwaysReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// FileSink appends to a local file through a buffered writer. It is ready
// immediately and never saturates; the OS absorbs write pressure.
type FileSink struct {
	f *os.File
	w *bufio.Writer
}

// NewFileSink opens (or creates) the target file for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileSink) Ready() <-chan struct{} { return alwaysReady }
func (s *FileSink) Drain() <-chan struct{} { return alwaysReady }

func (s *FileSink) Write(p []byte) (bool, error) {
	if _, err := s.w.Write(p); err != nil {
		return false, err
	}
	return true, nil
}

// Sync pushes buffered data to the OS and fsyncs the file.
func (s *FileSink) Sync() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.f.Sync()
}

func (s *FileSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
