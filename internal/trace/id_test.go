package trace

import (
	"encoding/hex"
	"testing"
)

func TestNewTraceID_GeneratesValidHex(t *testing.T) {
	id := NewTraceID()
	s := id.String()
	if len(s) != 32 {
		t.Errorf("NewTraceID: expected 32 characters, got %d", len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Errorf("NewTraceID: generated invalid hex: %v", err)
	}
	if !id.IsValid() {
		t.Error("NewTraceID: expected a valid id")
	}
}

func TestNewTraceID_GeneratesUniqueIDs(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()
	if id1 == id2 {
		t.Error("NewTraceID: generated duplicate IDs")
	}
}

func TestNewSpanID_GeneratesValidHex(t *testing.T) {
	s := NewSpanID().String()
	if len(s) != 16 {
		t.Errorf("NewSpanID: expected 16 characters, got %d", len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Errorf("NewSpanID: generated invalid hex: %v", err)
	}
}

func TestParseTraceID_RoundTrip(t *testing.T) {
	id := NewTraceID()
	parsed, err := ParseTraceID(id.String())
	if err != nil {
		t.Fatalf("ParseTraceID: unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("ParseTraceID: expected %s, got %s", id, parsed)
	}
}

func TestParseTraceID_Rejects(t *testing.T) {
	for _, in := range []string{"", "abc", "zz000000000000000000000000000000", "0af7651916cd43dd8448eb211c80319c00"} {
		if _, err := ParseTraceID(in); err == nil {
			t.Errorf("ParseTraceID(%q): expected error", in)
		}
	}
}

func TestParseSpanID(t *testing.T) {
	id, err := ParseSpanID("b7ad6b7169203331")
	if err != nil {
		t.Fatalf("ParseSpanID: unexpected error: %v", err)
	}
	if id.String() != "b7ad6b7169203331" {
		t.Errorf("ParseSpanID: expected b7ad6b7169203331, got %s", id)
	}
	if _, err := ParseSpanID("b7ad"); err == nil {
		t.Error("ParseSpanID: expected error for short input")
	}
}

func TestIDFromBytes_WrongLengthIsAbsent(t *testing.T) {
	if TraceIDFromBytes([]byte{1, 2, 3}).IsValid() {
		t.Error("TraceIDFromBytes: short slice should give absent id")
	}
	if SpanIDFromBytes(nil).IsValid() {
		t.Error("SpanIDFromBytes: nil slice should give absent id")
	}
	if !SpanIDFromBytes([]byte{0, 0, 0, 0, 0, 0, 0, 1}).IsValid() {
		t.Error("SpanIDFromBytes: expected valid id")
	}
}
