// Package report writes the per-tick CSV audit trail (account, order,
// prophecy, trader) and assembles it into a single Excel workbook at
// the end of a run (spec section 5, grounded on the original bot's
// per-file-locked logger).
package report

import (
	"fmt"
	"os"
	"sync"
)

// SinkRegistry hands out a single shared, mutex-guarded writer per
// file path so concurrent goroutines writing the same CSV never
// interleave partial lines, mirroring the original implementation's
// one-lock-one-handle-per-filename discipline.
type SinkRegistry struct {
	mu    sync.Mutex
	sinks map[string]*sink
}

// NewSinkRegistry constructs an empty registry.
func NewSinkRegistry() *SinkRegistry {
	return &SinkRegistry{sinks: make(map[string]*sink)}
}

type sink struct {
	mu sync.Mutex
	f  *os.File
}

// Sink is a handle into one registered file; WriteLine is safe to
// call from multiple goroutines holding the same Sink, and from
// multiple Sinks obtained for the same path.
type Sink struct {
	path string
	s    *sink
}

// Open returns the shared Sink for path, creating and opening it in
// append mode on first use.
func (r *SinkRegistry) Open(path string) (*Sink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sinks[path]
	if !ok {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- path is a report directory the operator configured
		if err != nil {
			return nil, fmt.Errorf("opening report sink %q: %w", path, err)
		}
		s = &sink{f: f}
		r.sinks[path] = s
	}
	return &Sink{path: path, s: s}, nil
}

// WriteLine appends one line (a trailing newline is added) and
// flushes immediately, matching the original logger's write-then-sync
// discipline so a crash never loses a fully-written row.
func (s *Sink) WriteLine(line string) error {
	s.s.mu.Lock()
	defer s.s.mu.Unlock()
	if _, err := s.s.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("writing to %q: %w", s.path, err)
	}
	return s.s.f.Sync()
}

// CloseAll closes every open sink; call once at shutdown.
func (r *SinkRegistry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for path, s := range r.sinks {
		if err := s.f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %q: %w", path, err)
		}
	}
	r.sinks = make(map[string]*sink)
	return firstErr
}
