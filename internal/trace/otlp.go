package trace

import (
	"fmt"
	"sort"
	"strings"

	collectortracev1 "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
	tracev1 "go.opentelemetry.io/proto/otlp/trace/v1"
)

// FromExportRequest flattens an OTLP export request into raw spans
func FromExportRequest(req *collectortracev1.ExportTraceServiceRequest) []RawSpan {
	return FromResourceSpans(req.GetResourceSpans())
}

// FromResourceSpans flattens OTLP resource spans into raw spans, in wire
// order. Every span receives its own copy of the resource attributes.
// IDs of the wrong length become absent so the inspector can flag them.
func FromResourceSpans(resourceSpans []*tracev1.ResourceSpans) []RawSpan {
	var out []RawSpan
	for _, rs := range resourceSpans {
		resource := attributesFromProto(rs.GetResource().GetAttributes())
		for _, ss := range rs.GetScopeSpans() {
			for _, sp := range ss.GetSpans() {
				out = append(out, spanFromProto(sp, resource))
			}
		}
	}
	return out
}

func spanFromProto(sp *tracev1.Span, resource Attributes) RawSpan {
	s := RawSpan{
		TraceID:      TraceIDFromBytes(sp.GetTraceId()),
		SpanID:       SpanIDFromBytes(sp.GetSpanId()),
		ParentSpanID: SpanIDFromBytes(sp.GetParentSpanId()),
		Kind:         kindFromProto(sp.GetKind()),
		Name:         sp.GetName(),
		Resource:     resource.Clone(),
		Attributes:   attributesFromProto(sp.GetAttributes()),
	}
	for _, ev := range sp.GetEvents() {
		s.Events = append(s.Events, Event{
			Name:       ev.GetName(),
			Attributes: attributesFromProto(ev.GetAttributes()),
		})
	}
	return s
}

func kindFromProto(k tracev1.Span_SpanKind) SpanKind {
	kind := SpanKind(k)
	if !kind.IsValid() {
		return KindInvalid
	}
	return kind
}

func attributesFromProto(kvs []*commonv1.KeyValue) Attributes {
	if len(kvs) == 0 {
		return nil
	}
	attrs := make(Attributes, len(kvs))
	for _, kv := range kvs {
		attrs[kv.GetKey()] = valueFromProto(kv.GetValue())
	}
	return attrs
}

func valueFromProto(v *commonv1.AnyValue) Value {
	switch x := v.GetValue().(type) {
	case *commonv1.AnyValue_StringValue:
		return StringValue(x.StringValue)
	case *commonv1.AnyValue_BoolValue:
		return BoolValue(x.BoolValue)
	case *commonv1.AnyValue_IntValue:
		return IntValue(x.IntValue)
	case *commonv1.AnyValue_DoubleValue:
		return DoubleValue(x.DoubleValue)
	case *commonv1.AnyValue_BytesValue:
		return BytesValue(x.BytesValue)
	case *commonv1.AnyValue_ArrayValue:
		values := x.ArrayValue.GetValues()
		items := make([]Value, len(values))
		for i, item := range values {
			items[i] = valueFromProto(item)
		}
		return Value{typ: ValueArray, items: items}
	case *commonv1.AnyValue_KvlistValue:
		// Nested maps are flattened to a stable string form
		return StringValue(renderKvlist(x.KvlistValue.GetValues()))
	default:
		return Value{}
	}
}

func renderKvlist(kvs []*commonv1.KeyValue) string {
	parts := make([]string, len(kvs))
	for i, kv := range kvs {
		parts[i] = fmt.Sprintf("%s=%s", kv.GetKey(), valueFromProto(kv.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}
