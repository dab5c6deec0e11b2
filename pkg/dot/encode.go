package dot

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	plainIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	numeralPattern = regexp.MustCompile(`^-?(\.[0-9]+|[0-9]+(\.[0-9]*)?)$`)
)

// EscapeID converts an arbitrary string into a syntactically valid DOT
// identifier. The string is split on ':' (colons separate port and
// compass-point fields in the DOT grammar), each segment that is not already
// a plain identifier or numeral is double-quoted with inner quotes escaped,
// and the segments are rejoined with ':'. Backslashes are never escaped.
func EscapeID(id string) string {
	segments := strings.Split(id, ":")
	for i, seg := range segments {
		segments[i] = quoteSegment(seg)
	}
	return strings.Join(segments, ":")
}

func quoteSegment(s string) string {
	if plainIDPattern.MatchString(s) || numeralPattern.MatchString(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// attrBlock renders an attribute store as ` [k=v, ...]` with keys in sorted
// order. The empty store renders as the empty string, leading space included.
func attrBlock(a Attrs) string {
	if len(a) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(a))
	for _, k := range a.Keys() {
		pairs = append(pairs, EscapeID(k)+"="+EscapeID(a[k]))
	}
	return " [" + strings.Join(pairs, ", ") + "]"
}

// String serializes the graph as a self-contained DOT document:
// "strict graph <name> { ... }" for the undirected variant and
// "strict digraph <name> { ... }" for the directed one. The strict keyword is
// always emitted; the layout engine collapses structurally duplicate edges.
//
// Serialization only reads the graph and never fails.
func (g *Graph[E]) String() string {
	var zero E
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "strict %s %s ", zero.keyword(), EscapeID(g.name))
	g.writeBody(&buf, "")
	return buf.String()
}

// Body serializes just the graph's brace-wrapped statement block, without the
// top-level strict wrapper. This is the exact text the graph contributes when
// nested as a subgraph.
func (g *Graph[E]) Body() string {
	var buf bytes.Buffer
	g.writeBody(&buf, "")
	return buf.String()
}

// WriteTo writes the full DOT document to w. It implements [io.WriterTo].
func (g *Graph[E]) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, g.String())
	return int64(n), err
}

// writeBody emits "{\n <statements> }\n" with two-space indentation per
// nesting level. Statement order: child subgraphs, graph attributes, node
// statements, edge statements.
func (g *Graph[E]) writeBody(buf *bytes.Buffer, indent string) {
	buf.WriteString("{\n")
	inner := indent + "  "
	for _, child := range g.children {
		fmt.Fprintf(buf, "%ssubgraph %s ", inner, EscapeID(child.name))
		child.writeBody(buf, inner)
	}
	for _, k := range g.attrs.Keys() {
		fmt.Fprintf(buf, "%s%s=%s;\n", inner, EscapeID(k), EscapeID(g.attrs[k]))
	}
	for _, name := range g.nodeOrder {
		fmt.Fprintf(buf, "%s%s%s;\n", inner, EscapeID(name), attrBlock(g.nodes[name]))
	}
	for _, e := range g.edgeOrder {
		a, b := e.Nodes()
		fmt.Fprintf(buf, "%s%s %s %s%s;\n", inner, EscapeID(a), e.arrow(), EscapeID(b), attrBlock(g.edges[e]))
	}
	buf.WriteString(indent + "}\n")
}
