package dot

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned by [Graph.NodeAttr] when the named node
	// does not exist in the graph, neither declared via [Graph.AddNode] nor
	// referenced as an edge endpoint.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned by [Graph.EdgeAttr] when the edge has not
	// been added to the graph.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrAttrNotFound is returned by [Attrs.Get] and the attribute accessors
	// on [Graph] when the attribute key is absent.
	ErrAttrNotFound = errors.New("attribute not found")
)

// RenderError is returned by [Render] when the layout executable started but
// exited with a non-zero status. It carries the exit code and whatever the
// process wrote to stderr.
type RenderError struct {
	ExitCode int    // process exit status
	Stderr   string // captured diagnostic output, trimmed
}

// Error returns a message including the exit code and captured stderr.
func (e *RenderError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("render failed with exit code %d", e.ExitCode)
	}
	return fmt.Sprintf("render failed with exit code %d: %s", e.ExitCode, e.Stderr)
}
