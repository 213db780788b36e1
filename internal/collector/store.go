// Package collector is an in-memory OTLP trace receiver used as the export
// target of the processes under test.
package collector

import (
	"sync"

	"tracecheck/internal/trace"
)

// Store holds every span received since the last Reset, in arrival order.
// There is no eviction: the snapshot grows until cleared.
type Store struct {
	mu       sync.RWMutex
	spans    []trace.RawSpan
	traces   map[trace.TraceID]struct{}
	onChange func() // Called after every mutation, without the lock held
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{traces: make(map[trace.TraceID]struct{})}
}

// Add appends copies of spans to the store
func (s *Store) Add(spans []trace.RawSpan) {
	if len(spans) == 0 {
		return
	}
	s.mu.Lock()
	for _, sp := range spans {
		s.spans = append(s.spans, sp.Clone())
		if sp.TraceID.IsValid() {
			s.traces[sp.TraceID] = struct{}{}
		}
	}
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Spans returns a copy of every stored span in arrival order
func (s *Store) Spans() []trace.RawSpan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]trace.RawSpan, len(s.spans))
	for i, sp := range s.spans {
		out[i] = sp.Clone()
	}
	return out
}

// Len returns the number of stored span records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spans)
}

// TraceCount returns the number of distinct non-zero trace IDs stored
func (s *Store) TraceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.traces)
}

// Reset drops every stored span
func (s *Store) Reset() {
	s.mu.Lock()
	s.spans = nil
	s.traces = make(map[trace.TraceID]struct{})
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// SetOnChange sets callback for state changes (thread-safe)
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}
