// Package manifest loads TOML graph descriptions and builds dot graphs from
// them. Manifests are the CLI's input format: a declarative list of nodes,
// edges, and nested subgraphs with free-form attribute tables.
//
// A minimal manifest:
//
//	kind = "digraph"
//	name = "deps"
//
//	[graph]
//	rankdir = "LR"
//
//	[[node]]
//	name = "app"
//	attrs = { shape = "box" }
//
//	[[edge]]
//	from = "app"
//	to = "lib"
//
//	[[subgraph]]
//	name = "cluster_backend"
//
//	  [[subgraph.node]]
//	  name = "db"
//
// Nodes referenced only by edges need no [[node]] entry; the dot model treats
// edge endpoints as existing nodes.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dotkit/pkg/dot"
)

// Graph kinds accepted in the manifest's kind field.
const (
	KindDigraph = "digraph" // directed, the default
	KindGraph   = "graph"   // undirected
)

var (
	// ErrUnknownKind is returned when the kind field is neither "graph" nor
	// "digraph" (nor empty, which defaults to "digraph").
	ErrUnknownKind = errors.New("unknown graph kind")

	// ErrUnnamedNode is returned when a [[node]] entry has no name.
	ErrUnnamedNode = errors.New("node is missing a name")

	// ErrMissingEndpoint is returned when an [[edge]] entry lacks from or to.
	ErrMissingEndpoint = errors.New("edge is missing an endpoint")

	// ErrKindMismatch is returned by [Manifest.Digraph] and
	// [Manifest.Undirected] when the manifest declares the other kind.
	ErrKindMismatch = errors.New("manifest kind does not match requested variant")
)

// Node declares a node with optional attributes.
type Node struct {
	Name  string            `toml:"name"`
	Attrs map[string]string `toml:"attrs"`
}

// Edge declares an edge with optional attributes. For undirected manifests
// from/to merely name the two endpoints.
type Edge struct {
	From  string            `toml:"from"`
	To    string            `toml:"to"`
	Attrs map[string]string `toml:"attrs"`
}

// Body is the recursive part of a manifest: a named statement block with
// graph attributes, nodes, edges, and nested subgraphs.
type Body struct {
	Name      string            `toml:"name"`
	Graph     map[string]string `toml:"graph"`
	Nodes     []Node            `toml:"node"`
	Edges     []Edge            `toml:"edge"`
	Subgraphs []Body            `toml:"subgraph"`
}

// Manifest is a complete TOML graph description.
type Manifest struct {
	Kind string `toml:"kind"`
	Body
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &m, nil
}

// Parse decodes a manifest from r.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	if _, err := toml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the kind field and that every declared node has a name and
// every edge has both endpoints, recursively through subgraphs.
func (m *Manifest) Validate() error {
	switch m.Kind {
	case "", KindDigraph, KindGraph:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	return validateBody(m.Body)
}

func validateBody(b Body) error {
	for _, n := range b.Nodes {
		if n.Name == "" {
			return ErrUnnamedNode
		}
	}
	for _, e := range b.Edges {
		if e.From == "" || e.To == "" {
			return fmt.Errorf("%w: %q -> %q", ErrMissingEndpoint, e.From, e.To)
		}
	}
	for _, sub := range b.Subgraphs {
		if err := validateBody(sub); err != nil {
			return err
		}
	}
	return nil
}

// Directed reports whether the manifest builds a directed graph.
// The kind field defaults to "digraph" when empty.
func (m *Manifest) Directed() bool { return m.Kind != KindGraph }

// DOT validates the manifest, builds the graph of the declared kind, and
// returns its serialized DOT text.
func (m *Manifest) DOT() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if m.Directed() {
		g := dot.NewDigraph()
		populate(g, m.Body, dot.DirectedEdge)
		return g.String(), nil
	}
	g := dot.NewGraph()
	populate(g, m.Body, dot.UndirectedEdge)
	return g.String(), nil
}

// Digraph builds the directed graph described by the manifest.
// Returns ErrKindMismatch for undirected manifests.
func (m *Manifest) Digraph() (*dot.Graph[dot.Directed], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !m.Directed() {
		return nil, fmt.Errorf("%w: manifest kind is %q", ErrKindMismatch, m.Kind)
	}
	g := dot.NewDigraph()
	populate(g, m.Body, dot.DirectedEdge)
	return g, nil
}

// Undirected builds the undirected graph described by the manifest.
// Returns ErrKindMismatch for directed manifests.
func (m *Manifest) Undirected() (*dot.Graph[dot.Undirected], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Directed() {
		return nil, fmt.Errorf("%w: manifest kind is %q", ErrKindMismatch, m.Kind)
	}
	g := dot.NewGraph()
	populate(g, m.Body, dot.UndirectedEdge)
	return g, nil
}

// populate fills g from the body, recursing into subgraphs. The edge
// constructor fixes the variant, so one implementation serves both kinds.
func populate[E dot.Relation](g *dot.Graph[E], b Body, edge func(a, b string) E) {
	g.SetName(b.Name)
	for _, k := range slices.Sorted(maps.Keys(b.Graph)) {
		g.SetAttr(k, b.Graph[k])
	}
	for _, n := range b.Nodes {
		g.AddNode(n.Name, attrList(n.Attrs)...)
	}
	for _, e := range b.Edges {
		g.AddEdge(edge(e.From, e.To), attrList(e.Attrs)...)
	}
	for _, sub := range b.Subgraphs {
		populate(dot.NewSubgraph(g), sub, edge)
	}
}

func attrList(m map[string]string) []dot.Attr {
	attrs := make([]dot.Attr, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		attrs = append(attrs, dot.Attr{Key: k, Value: m[k]})
	}
	return attrs
}
