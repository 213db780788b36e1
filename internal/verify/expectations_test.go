package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"tracecheck/internal/trace"
)

const smokeExpectations = `
traces: 1
checks:
  - kind: SERVER
    count: 1
  - name: GET /app/headers
    count: 1
  - attribute: {key: http.status_code, value: 200}
    count: 2
  - resource: {key: service.name, value: smoke-test}
    op: ge
    count: 1
  - event: {key: exception.message, value: This is expected}
    count: 0
  - spans: true
    op: gt
    count: 0
`

func TestParse(t *testing.T) {
	exp, err := Parse([]byte(smokeExpectations))
	require.NoError(t, err)

	assert.Equal(t, 1, exp.Traces)
	require.Len(t, exp.Checks, 6)

	assert.Equal(t, "kind SERVER", exp.Checks[0].Describe())
	assert.Equal(t, `name "GET /app/headers"`, exp.Checks[1].Describe())
	assert.Equal(t, "attribute http.status_code=200", exp.Checks[2].Describe())
	assert.True(t, exp.Checks[2].Attribute.Value.Equal(trace.IntValue(200)))
	assert.Equal(t, GreatEqual, exp.Checks[3].Op)
	assert.True(t, exp.Checks[3].Resource.Value.Equal(trace.StringValue("smoke-test")))
	assert.Equal(t, "spans", exp.Checks[5].Describe())
}

func TestParse_TypedValues(t *testing.T) {
	tests := []struct {
		yaml string
		want trace.Value
	}{
		{`200`, trace.IntValue(200)},
		{`"200"`, trace.StringValue("200")},
		{`1.5`, trace.DoubleValue(1.5)},
		{`true`, trace.BoolValue(true)},
		{`"true"`, trace.StringValue("true")},
		{`GET`, trace.StringValue("GET")},
		{`[a, 1]`, trace.ArrayValue(trace.StringValue("a"), trace.IntValue(1))},
	}
	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			exp, err := Parse([]byte("checks:\n  - attribute: {key: k, value: " + tt.yaml + "}\n    count: 1\n"))
			require.NoError(t, err)
			got := exp.Checks[0].Attribute.Value
			assert.True(t, tt.want.Equal(got), "got %s (%s)", got, got.Type())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ``},
		{"nothing to check", `traces: 0`},
		{"negative traces", `traces: -1`},
		{"no selector", "checks:\n  - count: 1\n"},
		{"two selectors", "checks:\n  - kind: SERVER\n    name: x\n    count: 1\n"},
		{"unknown kind", "checks:\n  - kind: SERVERISH\n    count: 1\n"},
		{"unknown op", "checks:\n  - kind: SERVER\n    op: about\n    count: 1\n"},
		{"negative count", "checks:\n  - kind: SERVER\n    count: -1\n"},
		{"missing key", "checks:\n  - attribute: {value: 1}\n    count: 1\n"},
		{"missing value", "checks:\n  - attribute: {key: k}\n    count: 1\n"},
		{"null value", "checks:\n  - attribute: {key: k, value: null}\n    count: 1\n"},
		{"map value", "checks:\n  - attribute: {key: k, value: {a: b}}\n    count: 1\n"},
		{"unknown field", "checks:\n  - kind: SERVER\n    cuont: 1\n"},
		{"not yaml", "checks: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_ReportsEveryInvalidCheck(t *testing.T) {
	_, err := Parse([]byte("checks:\n  - count: 1\n  - kind: NOPE\n    count: 1\n  - kind: SERVER\n    count: 1\n"))
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "check 1")
	assert.Contains(t, errs[1].Error(), "check 2")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expectations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smokeExpectations), 0o644))

	exp, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, exp.Checks, 6)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "missing.yaml")
}

func TestOp_Compare(t *testing.T) {
	tests := []struct {
		op       Op
		actual   int
		expected int
		want     bool
	}{
		{"", 2, 2, true},
		{Equal, 1, 2, false},
		{NotEqual, 1, 2, true},
		{GreatEqual, 2, 2, true},
		{GreatThan, 2, 2, false},
		{LessEqual, 1, 2, true},
		{LessThan, 2, 2, false},
		{Op("about"), 2, 2, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.Compare(tt.actual, tt.expected), "%d %s %d", tt.actual, tt.op, tt.expected)
	}
}
