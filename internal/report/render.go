// Package report renders an inspected span batch as a readable tree.
package report

import (
	"fmt"
	"sort"
	"strings"

	"tracecheck/internal/trace"
)

// Renderer turns inspector snapshots into text
type Renderer struct {
	styles Styles
}

// NewRenderer creates a renderer using styles
func NewRenderer(styles Styles) *Renderer {
	return &Renderer{styles: styles}
}

// Render renders in with the default colored styles
func Render(in *trace.Inspector) string {
	return NewRenderer(DefaultStyles()).Render(in)
}

// RenderPlain renders in without escape sequences
func RenderPlain(in *trace.Inspector) string {
	return NewRenderer(PlainStyles()).Render(in)
}

// Summary returns a one-line count summary of in
func Summary(in *trace.Inspector) string {
	s := fmt.Sprintf("%d %s in %d %s",
		in.CountSpans(), plural(in.CountSpans(), "span"),
		in.CountTraces(), plural(in.CountTraces(), "trace"))

	var extra []string
	for _, k := range trace.Kinds() {
		if n := in.CountSpansByKind(k); n > 0 {
			extra = append(extra, fmt.Sprintf("%d %s", n, k))
		}
	}
	if n := len(in.Malformed()); n > 0 {
		extra = append(extra, fmt.Sprintf("%d malformed", n))
	}
	if n := in.Duplicates(); n > 0 {
		extra = append(extra, fmt.Sprintf("%d %s replaced", n, plural(n, "duplicate")))
	}
	if len(extra) > 0 {
		s += " (" + strings.Join(extra, ", ") + ")"
	}
	return s
}

// Render renders a summary line, every trace as a span tree, and the
// malformed records
func (r *Renderer) Render(in *trace.Inspector) string {
	lines := []string{r.styles.Title.Render(Summary(in))}

	for _, t := range in.Traces() {
		lines = append(lines, "")
		header := fmt.Sprintf("Trace %s (%d %s)", t.ID, len(t.Spans), plural(len(t.Spans), "span"))
		lines = append(lines, r.styles.Title.Render(header))
		lines = append(lines, r.renderTrace(t)...)
	}

	if malformed := in.Malformed(); len(malformed) > 0 {
		lines = append(lines, "")
		lines = append(lines, r.styles.Error.Render("Malformed records"))
		for _, m := range malformed {
			lines = append(lines, "  "+r.styles.Error.Render(IconMalformed+" "+m.Error()))
		}
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) renderTrace(t trace.Trace) []string {
	inTrace := make(map[trace.SpanID]bool, len(t.Spans))
	for _, s := range t.Spans {
		inTrace[s.SpanID] = true
	}

	// Top level: spans without a parent in this trace
	var tops []trace.RawSpan
	for _, s := range t.Spans {
		if s.IsRoot() || !inTrace[s.ParentSpanID] {
			tops = append(tops, s)
		}
	}

	visited := make(map[trace.SpanID]bool, len(t.Spans))
	var lines []string
	for i, s := range tops {
		lines = append(lines, r.renderSpan(t, s, "", i == len(tops)-1, visited)...)
	}

	// Parent cycles leave spans unreachable from any top-level span
	var rest []trace.RawSpan
	for _, s := range t.Spans {
		if !visited[s.SpanID] {
			rest = append(rest, s)
		}
	}
	for i, s := range rest {
		if visited[s.SpanID] {
			continue
		}
		lines = append(lines, r.renderSpan(t, s, "", i == len(rest)-1, visited)...)
	}
	return lines
}

// renderSpan recursively renders a span and its children as a tree
func (r *Renderer) renderSpan(t trace.Trace, span trace.RawSpan, prefix string, isLast bool, visited map[trace.SpanID]bool) []string {
	visited[span.SpanID] = true

	connector := "├─"
	if isLast {
		connector = "└─"
	}
	name := span.Name
	if name == "" {
		name = "(unnamed)"
	}
	line := prefix + r.styles.TreeBranch.Render(connector) + " " +
		r.styles.Kind.Render(span.Kind.String()) + " " + r.styles.Name.Render(name)
	if attrs := formatAttributes(span.Attributes); attrs != "" {
		line += "  " + r.styles.Attribute.Render(attrs)
	}
	lines := []string{line}

	childPrefix := prefix
	if isLast {
		childPrefix += "   "
	} else {
		childPrefix += r.styles.TreeBranch.Render("│") + "  "
	}

	for _, ev := range span.Events {
		evLine := IconEvent + " " + ev.Name
		if attrs := formatAttributes(ev.Attributes); attrs != "" {
			evLine += "  " + attrs
		}
		lines = append(lines, childPrefix+r.styles.Event.Render(evLine))
	}

	var children []trace.RawSpan
	for _, c := range t.Children(span.SpanID) {
		if !visited[c.SpanID] {
			children = append(children, c)
		}
	}
	for i, child := range children {
		lines = append(lines, r.renderSpan(t, child, childPrefix, i == len(children)-1, visited)...)
	}
	return lines
}

// formatAttributes renders attributes as key=value pairs sorted by key
func formatAttributes(attrs trace.Attributes) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k].String()
	}
	return strings.Join(parts, " ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
