// Package verify evaluates declarative count expectations against an
// inspected span batch.
package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"tracecheck/internal/trace"
)

// Op is a count comparison operator
type Op string

const (
	Equal      Op = "eq"
	NotEqual   Op = "ne"
	GreatEqual Op = "ge"
	GreatThan  Op = "gt"
	LessEqual  Op = "le"
	LessThan   Op = "lt"
)

// Compare reports whether actual op expected holds
func (o Op) Compare(actual, expected int) bool {
	switch o {
	case Equal, "":
		return actual == expected
	case NotEqual:
		return actual != expected
	case GreatEqual:
		return actual >= expected
	case GreatThan:
		return actual > expected
	case LessEqual:
		return actual <= expected
	case LessThan:
		return actual < expected
	}
	return false
}

func (o Op) valid() bool {
	switch o {
	case "", Equal, NotEqual, GreatEqual, GreatThan, LessEqual, LessThan:
		return true
	}
	return false
}

// Match selects an attribute by key and typed value
type Match struct {
	Key   string
	Value trace.Value
}

// UnmarshalYAML decodes {key, value}, typing the value from its YAML tag
func (m *Match) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Key   string    `yaml:"key"`
		Value yaml.Node `yaml:"value"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Key == "" {
		return errors.Errorf("line %d: attribute match needs a key", node.Line)
	}
	v, err := valueFromNode(&raw.Value)
	if err != nil {
		return err
	}
	m.Key, m.Value = raw.Key, v
	return nil
}

func (m Match) String() string {
	return m.Key + "=" + m.Value.String()
}

// valueFromNode maps a YAML scalar (or sequence of scalars) onto a typed value
func valueFromNode(node *yaml.Node) (trace.Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return scalarValue(node)
	case yaml.SequenceNode:
		items := make([]trace.Value, len(node.Content))
		for i, child := range node.Content {
			v, err := valueFromNode(child)
			if err != nil {
				return trace.Value{}, err
			}
			items[i] = v
		}
		return trace.ArrayValue(items...), nil
	case 0:
		return trace.Value{}, errors.New("attribute match needs a value")
	default:
		return trace.Value{}, errors.Errorf("line %d: attribute value must be a scalar or a list", node.Line)
	}
}

func scalarValue(node *yaml.Node) (trace.Value, error) {
	switch node.ShortTag() {
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return trace.Value{}, errors.Wrapf(err, "line %d: int value", node.Line)
		}
		return trace.IntValue(n), nil
	case "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return trace.Value{}, errors.Wrapf(err, "line %d: float value", node.Line)
		}
		return trace.DoubleValue(f), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return trace.Value{}, errors.Wrapf(err, "line %d: bool value", node.Line)
		}
		return trace.BoolValue(b), nil
	case "!!null":
		return trace.Value{}, errors.Errorf("line %d: attribute value must not be null", node.Line)
	default:
		return trace.StringValue(node.Value), nil
	}
}

// Check is one count expectation. Exactly one selector must be set.
type Check struct {
	Kind      string `yaml:"kind,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Attribute *Match `yaml:"attribute,omitempty"`
	Resource  *Match `yaml:"resource,omitempty"`
	Event     *Match `yaml:"event,omitempty"`
	Spans     bool   `yaml:"spans,omitempty"` // Total well-formed span count

	Op    Op  `yaml:"op,omitempty"`
	Count int `yaml:"count"`
}

// spanKind parses the kind selector
func (c Check) spanKind() (trace.SpanKind, bool) {
	return trace.ParseSpanKind(c.Kind)
}

// Describe returns the selector in a short readable form
func (c Check) Describe() string {
	switch {
	case c.Kind != "":
		if kind, ok := c.spanKind(); ok {
			return "kind " + kind.String()
		}
		return fmt.Sprintf("kind %q", c.Kind)
	case c.Name != "":
		return fmt.Sprintf("name %q", c.Name)
	case c.Attribute != nil:
		return "attribute " + c.Attribute.String()
	case c.Resource != nil:
		return "resource " + c.Resource.String()
	case c.Event != nil:
		return "event " + c.Event.String()
	default:
		return "spans"
	}
}

// Actual computes the count the check compares
func (c Check) Actual(in *trace.Inspector) int {
	switch {
	case c.Kind != "":
		kind, ok := c.spanKind()
		if !ok {
			return 0
		}
		return in.CountSpansByKind(kind)
	case c.Name != "":
		return in.CountSpansByName(c.Name)
	case c.Attribute != nil:
		return in.CountFilteredAttributes(c.Attribute.Key, c.Attribute.Value)
	case c.Resource != nil:
		return in.CountFilteredResourceAttributes(c.Resource.Key, c.Resource.Value)
	case c.Event != nil:
		return in.CountFilteredEventAttributes(c.Event.Key, c.Event.Value)
	default:
		return in.CountSpans()
	}
}

func (c Check) validate() error {
	selectors := 0
	for _, set := range []bool{c.Kind != "", c.Name != "", c.Attribute != nil, c.Resource != nil, c.Event != nil, c.Spans} {
		if set {
			selectors++
		}
	}
	if selectors != 1 {
		return errors.Errorf("needs exactly one of kind, name, attribute, resource, event or spans, got %d", selectors)
	}
	if _, ok := c.spanKind(); c.Kind != "" && !ok {
		return errors.Errorf("unknown span kind %q", c.Kind)
	}
	if !c.Op.valid() {
		return errors.Errorf("unknown op %q", c.Op)
	}
	if c.Count < 0 {
		return errors.Errorf("count must not be negative, got %d", c.Count)
	}
	return nil
}

// Expectations is the content of an expectation file
type Expectations struct {
	Traces int     `yaml:"traces"` // Traces to wait for; the batch must hold at least this many
	Checks []Check `yaml:"checks"`
}

// Load reads and parses the expectation file at path
func Load(path string) (*Expectations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read expectations from file: %s", path)
	}
	exp, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid expectations file: %s", path)
	}
	return exp, nil
}

// Parse decodes and validates expectations. Unknown fields are rejected and
// every invalid check is reported.
func Parse(data []byte) (*Expectations, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var exp Expectations
	if err := dec.Decode(&exp); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("expectations are empty")
		}
		return nil, errors.Wrap(err, "yaml unmarshal error")
	}

	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Validate reports every invalid setting and check
func (e *Expectations) Validate() error {
	var errs error
	if e.Traces < 0 {
		errs = multierr.Append(errs, errors.Errorf("traces must not be negative, got %d", e.Traces))
	}
	if e.Traces == 0 && len(e.Checks) == 0 {
		errs = multierr.Append(errs, errors.New("expectations need traces or at least one check"))
	}
	for i, c := range e.Checks {
		if err := c.validate(); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "check %d", i+1))
		}
	}
	return errs
}
