// File: internal/telemetry/sink.go
package telemetry

import (
	"fmt"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink is an append-only destination for event records. Implementations must
// be safe for concurrent appends; sessions running in parallel share one sink.
type Sink interface {
	Append(rec Record) error
	Close() error
}

// StreamSink writes newline-delimited JSON to an io.Writer, serializing
// appends with a mutex so records from concurrent sessions never interleave
// mid-line.
type StreamSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewStreamSink wraps an arbitrary writer. closer may be nil for writers the
// sink does not own (stdout).
func NewStreamSink(w io.Writer, closer io.Closer) *StreamSink {
	return &StreamSink{w: w, closer: closer}
}

// NewFileSink opens (or creates, truncating) the named file as a sink.
func NewFileSink(path string) (*StreamSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry output %q: %w", path, err)
	}
	return &StreamSink{w: f, closer: f}, nil
}

// NewSink resolves a destination string: "" or "-" selects stdout, anything
// else is a file path.
func NewSink(destination string) (*StreamSink, error) {
	if destination == "" || destination == "-" {
		return NewStreamSink(os.Stdout, nil), nil
	}
	return NewFileSink(destination)
}

// Append encodes one record as a single JSON line.
func (s *StreamSink) Append(rec Record) error {
	line, err := jsonAPI.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode telemetry record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append telemetry record: %w", err)
	}
	return nil
}

// Close releases the underlying file handle, if the sink owns one.
func (s *StreamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
