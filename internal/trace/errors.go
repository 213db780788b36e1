package trace

import "fmt"

// MalformedSpanError describes a batch record that lacks a required field.
// The inspector excludes such records from every count.
type MalformedSpanError struct {
	Index int    // Position in the batch as delivered
	Field string // "traceId", "spanId" or "kind"
	Span  RawSpan
}

func (e *MalformedSpanError) Error() string {
	return fmt.Sprintf("malformed span at index %d (name %q): missing %s", e.Index, e.Span.Name, e.Field)
}

// validate returns a MalformedSpanError when s lacks a required field
func validate(index int, s RawSpan) *MalformedSpanError {
	if field := s.missingField(); field != "" {
		return &MalformedSpanError{Index: index, Field: field, Span: s}
	}
	return nil
}
