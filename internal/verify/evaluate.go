package verify

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"tracecheck/internal/report"
	"tracecheck/internal/trace"
)

// MismatchError is one failed count expectation
type MismatchError struct {
	Check    string // Check number or "traces"
	Selector string
	Op       Op
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	op := e.Op
	if op == "" {
		op = Equal
	}
	return fmt.Sprintf("%s [%s]: --expected => %s %d, ++actual => %d", e.Check, e.Selector, op, e.Expected, e.Actual)
}

// AssertionError aggregates every mismatch of one evaluation together with a
// rendering of the batch it was evaluated against
type AssertionError struct {
	Failures []*MismatchError
	Total    int // Number of evaluated expectations
	Snapshot string
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d expectations failed:\n", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		b.WriteString("  - " + f.Error() + "\n")
	}
	b.WriteString("\n" + e.Snapshot)
	return b.String()
}

// Unwrap exposes the individual mismatches to errors.As
func (e *AssertionError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Evaluate checks every expectation against in. It returns nil when all hold
// and an *AssertionError otherwise. Invalid expectations are rejected before
// anything is counted.
func Evaluate(in *trace.Inspector, exp *Expectations) error {
	if err := exp.Validate(); err != nil {
		return errors.Wrap(err, "invalid expectations")
	}

	var errs error
	total := 0

	if exp.Traces > 0 {
		total++
		if actual := in.CountTraces(); !GreatEqual.Compare(actual, exp.Traces) {
			errs = multierr.Append(errs, &MismatchError{
				Check:    "traces",
				Selector: "distinct trace ids",
				Op:       GreatEqual,
				Expected: exp.Traces,
				Actual:   actual,
			})
		}
	}

	for i, c := range exp.Checks {
		total++
		if actual := c.Actual(in); !c.Op.Compare(actual, c.Count) {
			errs = multierr.Append(errs, &MismatchError{
				Check:    fmt.Sprintf("check %d", i+1),
				Selector: c.Describe(),
				Op:       c.Op,
				Expected: c.Count,
				Actual:   actual,
			})
		}
	}

	if errs == nil {
		return nil
	}
	var failures []*MismatchError
	for _, err := range multierr.Errors(errs) {
		failures = append(failures, err.(*MismatchError))
	}
	return &AssertionError{
		Failures: failures,
		Total:    total,
		Snapshot: report.RenderPlain(in),
	}
}
