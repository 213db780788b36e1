package trace

import "strings"

// SpanKind describes the role of a span in a trace. Values follow the
// OTLP numbering.
type SpanKind int

const (
	KindInvalid     SpanKind = -1 // Kind absent or unknown in the raw record
	KindUnspecified SpanKind = 0
	KindInternal    SpanKind = 1
	KindServer      SpanKind = 2
	KindClient      SpanKind = 3
	KindProducer    SpanKind = 4
	KindConsumer    SpanKind = 5
)

// Kinds returns every valid span kind
func Kinds() []SpanKind {
	return []SpanKind{KindUnspecified, KindInternal, KindServer, KindClient, KindProducer, KindConsumer}
}

// String returns the upper-case kind name
func (k SpanKind) String() string {
	switch k {
	case KindUnspecified:
		return "UNSPECIFIED"
	case KindInternal:
		return "INTERNAL"
	case KindServer:
		return "SERVER"
	case KindClient:
		return "CLIENT"
	case KindProducer:
		return "PRODUCER"
	case KindConsumer:
		return "CONSUMER"
	default:
		return "INVALID"
	}
}

// IsValid reports whether k is one of Kinds()
func (k SpanKind) IsValid() bool {
	return k >= KindUnspecified && k <= KindConsumer
}

// ParseSpanKind parses a kind name such as "SERVER" or "SPAN_KIND_SERVER".
// Unknown names return KindInvalid and false.
func ParseSpanKind(s string) (SpanKind, bool) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SPAN_KIND_")
	for _, k := range Kinds() {
		if k.String() == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// Event is a timestamped sub-record of a span
type Event struct {
	Name       string
	Attributes Attributes
}

// RawSpan is a single span record as exported by an instrumented process
type RawSpan struct {
	TraceID      TraceID
	SpanID       SpanID
	ParentSpanID SpanID // Zero for root spans
	Kind         SpanKind
	Name         string
	Resource     Attributes // Shared by all spans of the originating process
	Attributes   Attributes
	Events       []Event // Temporal order
}

// IsRoot reports whether the span has no parent
func (s RawSpan) IsRoot() bool {
	return !s.ParentSpanID.IsValid()
}

// Clone returns a deep copy
func (s RawSpan) Clone() RawSpan {
	out := s
	out.Resource = s.Resource.Clone()
	out.Attributes = s.Attributes.Clone()
	if s.Events != nil {
		out.Events = make([]Event, len(s.Events))
		for i, e := range s.Events {
			out.Events[i] = Event{Name: e.Name, Attributes: e.Attributes.Clone()}
		}
	}
	return out
}

// missingField returns the first required field absent from the span, or ""
func (s RawSpan) missingField() string {
	switch {
	case !s.TraceID.IsValid():
		return "traceId"
	case !s.SpanID.IsValid():
		return "spanId"
	case !s.Kind.IsValid():
		return "kind"
	}
	return ""
}
