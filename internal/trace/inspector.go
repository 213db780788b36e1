package trace

import (
	"fmt"
	"io"
)

type spanKey struct {
	trace TraceID
	span  SpanID
}

// Inspector answers count and lookup queries over one frozen batch of spans.
//
// All state is fixed inside NewInspector; afterwards the inspector is
// read-only and safe for concurrent use without locking. A new batch needs a
// new inspector.
type Inspector struct {
	spans      []RawSpan
	traces     []Trace
	traceIndex map[TraceID]int
	malformed  []*MalformedSpanError
	duplicates int
}

// NewInspector builds an inspector over a deep copy of batch.
//
// Records missing a trace ID, span ID or kind are excluded from every count
// and reported by Malformed. Records repeating an earlier (trace ID, span ID)
// pair replace it in place: the last write wins, the first position is kept.
func NewInspector(batch []RawSpan) *Inspector {
	in := &Inspector{
		spans:      make([]RawSpan, 0, len(batch)),
		traceIndex: make(map[TraceID]int),
	}

	seen := make(map[spanKey]int, len(batch))
	for i, raw := range batch {
		s := raw.Clone()
		if err := validate(i, s); err != nil {
			in.malformed = append(in.malformed, err)
			continue
		}
		key := spanKey{trace: s.TraceID, span: s.SpanID}
		if pos, ok := seen[key]; ok {
			in.spans[pos] = s
			in.duplicates++
			continue
		}
		seen[key] = len(in.spans)
		in.spans = append(in.spans, s)
	}

	in.traces = GroupByTrace(in.spans)
	for i, t := range in.traces {
		in.traceIndex[t.ID] = i
	}
	return in
}

// Inspect decodes a JSON span batch (see DecodeSpans) and builds an inspector
// over it. Decode failures are returned as-is.
func Inspect(r io.Reader) (*Inspector, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read span batch: %w", err)
	}
	spans, err := DecodeSpans(data)
	if err != nil {
		return nil, err
	}
	return NewInspector(spans), nil
}

// TraceIDs returns the distinct trace IDs in first-seen order
func (in *Inspector) TraceIDs() []TraceID {
	ids := make([]TraceID, len(in.traces))
	for i, t := range in.traces {
		ids[i] = t.ID
	}
	return ids
}

// CountTraces returns the number of distinct traces
func (in *Inspector) CountTraces() int {
	return len(in.traces)
}

// CountSpans returns the number of well-formed spans
func (in *Inspector) CountSpans() int {
	return len(in.spans)
}

// CountSpansByKind counts spans of the given kind
func (in *Inspector) CountSpansByKind(kind SpanKind) int {
	return in.CountSpansWhere(func(s RawSpan) bool { return s.Kind == kind })
}

// CountSpansByName counts spans whose name equals name exactly
func (in *Inspector) CountSpansByName(name string) int {
	return in.CountSpansWhere(func(s RawSpan) bool { return s.Name == name })
}

// CountFilteredAttributes counts spans carrying span attribute key with a
// value typed-equal to value
func (in *Inspector) CountFilteredAttributes(key string, value Value) int {
	return in.CountSpansWhere(func(s RawSpan) bool { return s.Attributes.Matches(key, value) })
}

// CountFilteredResourceAttributes counts spans whose resource carries key
// with a value typed-equal to value. Counting is per span.
func (in *Inspector) CountFilteredResourceAttributes(key string, value Value) int {
	return in.CountSpansWhere(func(s RawSpan) bool { return s.Resource.Matches(key, value) })
}

// CountFilteredEventAttributes counts events, across all spans, whose
// attributes carry key with a value typed-equal to value. A span with two
// matching events contributes two.
func (in *Inspector) CountFilteredEventAttributes(key string, value Value) int {
	n := 0
	for _, s := range in.spans {
		for _, e := range s.Events {
			if e.Attributes.Matches(key, value) {
				n++
			}
		}
	}
	return n
}

// CountSpansByTrace returns the number of spans in the given trace
func (in *Inspector) CountSpansByTrace(id TraceID) int {
	i, ok := in.traceIndex[id]
	if !ok {
		return 0
	}
	return len(in.traces[i].Spans)
}

// CountSpansWhere counts spans for which pred returns true
func (in *Inspector) CountSpansWhere(pred func(RawSpan) bool) int {
	n := 0
	for _, s := range in.spans {
		if pred(s) {
			n++
		}
	}
	return n
}

// Spans returns a copy of the well-formed spans in batch order
func (in *Inspector) Spans() []RawSpan {
	return cloneSpans(in.spans)
}

// Traces returns a copy of the derived traces in first-seen order
func (in *Inspector) Traces() []Trace {
	out := make([]Trace, len(in.traces))
	for i, t := range in.traces {
		out[i] = Trace{ID: t.ID, Spans: cloneSpans(t.Spans)}
	}
	return out
}

// Trace looks up one trace by ID
func (in *Inspector) Trace(id TraceID) (Trace, bool) {
	i, ok := in.traceIndex[id]
	if !ok {
		return Trace{}, false
	}
	t := in.traces[i]
	return Trace{ID: t.ID, Spans: cloneSpans(t.Spans)}, true
}

// Malformed returns the records excluded from counts, in batch order
func (in *Inspector) Malformed() []*MalformedSpanError {
	out := make([]*MalformedSpanError, len(in.malformed))
	copy(out, in.malformed)
	return out
}

// Duplicates returns how many records replaced an earlier record with the
// same trace and span ID
func (in *Inspector) Duplicates() int {
	return in.duplicates
}

func cloneSpans(spans []RawSpan) []RawSpan {
	out := make([]RawSpan, len(spans))
	for i, s := range spans {
		out[i] = s.Clone()
	}
	return out
}
