package trace

// Trace is the read-only set of spans sharing one trace ID, in batch order
type Trace struct {
	ID    TraceID
	Spans []RawSpan
}

// Span returns the span with the given ID
func (t Trace) Span(id SpanID) (RawSpan, bool) {
	for _, s := range t.Spans {
		if s.SpanID == id {
			return s, true
		}
	}
	return RawSpan{}, false
}

// Root returns the first span whose parent is absent or not part of the
// trace. Partial exports may leave a trace without its true root.
func (t Trace) Root() (RawSpan, bool) {
	ids := make(map[SpanID]struct{}, len(t.Spans))
	for _, s := range t.Spans {
		ids[s.SpanID] = struct{}{}
	}
	for _, s := range t.Spans {
		if s.IsRoot() {
			return s, true
		}
		if _, ok := ids[s.ParentSpanID]; !ok {
			return s, true
		}
	}
	return RawSpan{}, false
}

// Children returns the direct children of the given span, in batch order
func (t Trace) Children(parent SpanID) []RawSpan {
	var out []RawSpan
	for _, s := range t.Spans {
		if s.ParentSpanID == parent && s.ParentSpanID.IsValid() {
			out = append(out, s)
		}
	}
	return out
}

// GroupByTrace partitions spans by trace ID. Traces appear in the order their
// first span appears; spans keep their relative order. The input is not
// modified and nothing is retained between calls.
func GroupByTrace(spans []RawSpan) []Trace {
	index := make(map[TraceID]int)
	var traces []Trace
	for _, s := range spans {
		i, ok := index[s.TraceID]
		if !ok {
			i = len(traces)
			index[s.TraceID] = i
			traces = append(traces, Trace{ID: s.TraceID})
		}
		traces[i].Spans = append(traces[i].Spans, s)
	}
	return traces
}
