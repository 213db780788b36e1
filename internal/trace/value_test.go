package trace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", StringValue("x"), StringValue("x"), true},
		{"different string", StringValue("x"), StringValue("y"), false},
		{"int vs string", IntValue(5), StringValue("5"), false},
		{"int vs double", IntValue(5), DoubleValue(5), false},
		{"same int", IntValue(5), IntValue(5), true},
		{"same double", DoubleValue(1.5), DoubleValue(1.5), true},
		{"bool", BoolValue(true), BoolValue(true), true},
		{"bool mismatch", BoolValue(true), BoolValue(false), false},
		{"bytes", BytesValue([]byte{1, 2}), BytesValue([]byte{1, 2}), true},
		{"array", ArrayValue(StringValue("a"), IntValue(1)), ArrayValue(StringValue("a"), IntValue(1)), true},
		{"array length", ArrayValue(StringValue("a")), ArrayValue(StringValue("a"), StringValue("b")), false},
		{"array element type", ArrayValue(IntValue(1)), ArrayValue(DoubleValue(1)), false},
		{"empty", Value{}, Value{}, true},
		{"empty vs string", Value{}, StringValue(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, `"GET"`, StringValue("GET").String())
	assert.Equal(t, "200", IntValue(200).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "0.25", DoubleValue(0.25).String())
	assert.Equal(t, "0x0aff", BytesValue([]byte{0x0a, 0xff}).String())
	assert.Equal(t, `["a", 1]`, ArrayValue(StringValue("a"), IntValue(1)).String())
	assert.Equal(t, "<empty>", Value{}.String())
}

func TestValue_JSON(t *testing.T) {
	values := []Value{
		StringValue("GET"),
		IntValue(-42),
		DoubleValue(3.5),
		BoolValue(false),
		BytesValue([]byte("raw")),
		ArrayValue(StringValue("a"), IntValue(2)),
	}
	for _, v := range values {
		t.Run(v.Type().String(), func(t *testing.T) {
			data, err := json.Marshal(v)
			require.NoError(t, err)
			var got Value
			require.NoError(t, json.Unmarshal(data, &got))
			assert.True(t, v.Equal(got), "decoded %s from %s", got, data)
		})
	}
}

func TestValue_JSONWireForm(t *testing.T) {
	data, err := json.Marshal(IntValue(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"intValue":"7"}`, string(data))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"intValue":7}`), &v))
	assert.True(t, v.Equal(IntValue(7)), "numeric intValue is accepted")

	require.NoError(t, json.Unmarshal([]byte(`{"stringValue":""}`), &v))
	assert.True(t, v.Equal(StringValue("")))

	require.NoError(t, json.Unmarshal([]byte(`{}`), &v))
	assert.Equal(t, ValueEmpty, v.Type())

	assert.Error(t, json.Unmarshal([]byte(`{"intValue":"seven"}`), &v))
}

func TestValue_JSONNullMembersAreAbsent(t *testing.T) {
	for _, in := range []string{`{"intValue":null}`, `{"stringValue":null}`, `{"arrayValue":null}`} {
		v := StringValue("stale")
		require.NoError(t, json.Unmarshal([]byte(in), &v), in)
		assert.Equal(t, ValueEmpty, v.Type(), in)
	}

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"intValue":null,"boolValue":true}`), &v))
	assert.True(t, v.Equal(BoolValue(true)))

	spans, err := DecodeSpans([]byte(`[{"traceId":"0af7651916cd43dd8448eb211c80319c","spanId":"b7ad6b7169203331","kind":"SERVER","name":"x","attributes":{"retries":{"intValue":null}}}]`))
	require.NoError(t, err)
	require.Len(t, spans, 1)
	got, ok := spans[0].Attributes.Get("retries")
	require.True(t, ok)
	assert.Equal(t, ValueEmpty, got.Type())
}

func TestAttributes_CloneIsDeep(t *testing.T) {
	orig := Attributes{"list": ArrayValue(StringValue("a")), "b": BytesValue([]byte{1})}
	cp := orig.Clone()
	cp["list"] = StringValue("replaced")
	assert.True(t, orig["list"].Equal(ArrayValue(StringValue("a"))))
	assert.Nil(t, Attributes(nil).Clone())
}
