package trace

import (
	"encoding/json"

	"tracecheck/internal/jsonutil"
)

// spanRecord is the JSON form of a RawSpan served by the collector query API
type spanRecord struct {
	TraceID      string        `json:"traceId"`
	SpanID       string        `json:"spanId"`
	ParentSpanID string        `json:"parentSpanId,omitempty"`
	Kind         string        `json:"kind"`
	Name         string        `json:"name"`
	Resource     Attributes    `json:"resource,omitempty"`
	Attributes   Attributes    `json:"attributes,omitempty"`
	Events       []eventRecord `json:"events,omitempty"`
}

type eventRecord struct {
	Name       string     `json:"name"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// EncodeSpans encodes spans as a JSON array of span records. Absent IDs are
// written as empty strings and an invalid kind as "".
func EncodeSpans(spans []RawSpan) ([]byte, error) {
	records := make([]spanRecord, len(spans))
	for i, s := range spans {
		records[i] = toRecord(s)
	}
	return json.Marshal(records)
}

// DecodeSpans decodes a JSON array of span records.
//
// Missing or unparseable IDs and unknown kinds decode to absent values so the
// inspector can flag the record; only invalid JSON is an error.
func DecodeSpans(data []byte) ([]RawSpan, error) {
	records, err := jsonutil.UnmarshalArrayAllowEmpty[spanRecord](data, "decode span batch")
	if err != nil {
		return nil, err
	}
	spans := make([]RawSpan, len(records))
	for i, r := range records {
		spans[i] = fromRecord(r)
	}
	return spans, nil
}

func toRecord(s RawSpan) spanRecord {
	r := spanRecord{
		Name:       s.Name,
		Resource:   s.Resource,
		Attributes: s.Attributes,
	}
	if s.TraceID.IsValid() {
		r.TraceID = s.TraceID.String()
	}
	if s.SpanID.IsValid() {
		r.SpanID = s.SpanID.String()
	}
	if s.ParentSpanID.IsValid() {
		r.ParentSpanID = s.ParentSpanID.String()
	}
	if s.Kind.IsValid() {
		r.Kind = s.Kind.String()
	}
	for _, e := range s.Events {
		r.Events = append(r.Events, eventRecord{Name: e.Name, Attributes: e.Attributes})
	}
	return r
}

func fromRecord(r spanRecord) RawSpan {
	s := RawSpan{
		Name:       r.Name,
		Resource:   r.Resource,
		Attributes: r.Attributes,
	}
	// Parse errors leave the zero (absent) id behind
	s.TraceID, _ = ParseTraceID(r.TraceID)
	s.SpanID, _ = ParseSpanID(r.SpanID)
	if r.ParentSpanID != "" {
		s.ParentSpanID, _ = ParseSpanID(r.ParentSpanID)
	}
	s.Kind, _ = ParseSpanKind(r.Kind)
	for _, e := range r.Events {
		s.Events = append(s.Events, Event{Name: e.Name, Attributes: e.Attributes})
	}
	return s
}
