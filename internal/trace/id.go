package trace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TraceID is a 16-byte trace identifier. The all-zero value means absent.
type TraceID [16]byte

// SpanID is an 8-byte span identifier. The all-zero value means absent.
type SpanID [8]byte

// String returns the 32-character lower-case hex form
func (id TraceID) String() string {
	return hex.EncodeToString(id[:])
}

// IsValid reports whether the id has at least one non-zero byte
func (id TraceID) IsValid() bool {
	return id != TraceID{}
}

// String returns the 16-character lower-case hex form
func (id SpanID) String() string {
	return hex.EncodeToString(id[:])
}

// IsValid reports whether the id has at least one non-zero byte
func (id SpanID) IsValid() bool {
	return id != SpanID{}
}

// NewTraceID generates a random trace ID
func NewTraceID() TraceID {
	var id TraceID
	rand.Read(id[:])
	return id
}

// NewSpanID generates a random span ID
func NewSpanID() SpanID {
	var id SpanID
	rand.Read(id[:])
	return id
}

// ParseTraceID decodes a 32-character hex string
func ParseTraceID(s string) (TraceID, error) {
	var id TraceID
	if err := decodeHexID(s, id[:]); err != nil {
		return TraceID{}, fmt.Errorf("trace id %q: %w", s, err)
	}
	return id, nil
}

// ParseSpanID decodes a 16-character hex string
func ParseSpanID(s string) (SpanID, error) {
	var id SpanID
	if err := decodeHexID(s, id[:]); err != nil {
		return SpanID{}, fmt.Errorf("span id %q: %w", s, err)
	}
	return id, nil
}

// TraceIDFromBytes copies b into a TraceID. Slices of the wrong length
// yield the zero (absent) id.
func TraceIDFromBytes(b []byte) TraceID {
	var id TraceID
	if len(b) == len(id) {
		copy(id[:], b)
	}
	return id
}

// SpanIDFromBytes copies b into a SpanID. Slices of the wrong length
// yield the zero (absent) id.
func SpanIDFromBytes(b []byte) SpanID {
	var id SpanID
	if len(b) == len(id) {
		copy(id[:], b)
	}
	return id
}

func decodeHexID(s string, dst []byte) error {
	if len(s) != hex.EncodedLen(len(dst)) {
		return fmt.Errorf("expected %d hex characters, got %d", hex.EncodedLen(len(dst)), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
