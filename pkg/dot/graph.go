package dot

import (
	"fmt"
	"iter"
	"slices"
)

// Graph is an in-memory model of a DOT graph: a name, graph-level attributes,
// per-node and per-edge attribute stores, and an ordered list of child
// subgraphs. The type parameter fixes the edge variant for the graph's whole
// lifetime — a graph holds either only [Undirected] or only [Directed] edges,
// and subgraphs share their parent's variant.
//
// Nodes and edges keep insertion order, so serialization reflects build order
// and is fully deterministic. Attribute stores serialize in sorted key order.
//
// The zero value is not usable — use [NewGraph], [NewDigraph], or
// [NewSubgraph]. Graph is not safe for concurrent use without external
// synchronization.
type Graph[E Relation] struct {
	name      string
	attrs     Attrs
	nodes     map[string]Attrs
	nodeOrder []string
	edges     map[E]Attrs
	edgeOrder []E
	children  []*Graph[E]
}

func newGraph[E Relation]() *Graph[E] {
	return &Graph[E]{
		attrs: Attrs{},
		nodes: make(map[string]Attrs),
		edges: make(map[E]Attrs),
	}
}

// NewGraph creates an empty standalone undirected graph.
func NewGraph() *Graph[Undirected] { return newGraph[Undirected]() }

// NewDigraph creates an empty standalone directed graph.
func NewDigraph() *Graph[Directed] { return newGraph[Directed]() }

// NewSubgraph creates an empty graph and registers it as a child of parent.
// The child shares the parent's edge variant and cannot later be detached or
// attached to a second parent; only this constructor appends to the child
// list, which rules out inclusion cycles.
//
// The returned graph exposes the full Graph contract and is independently
// serializable via [Graph.Body] or [Graph.String].
func NewSubgraph[E Relation](parent *Graph[E]) *Graph[E] {
	child := newGraph[E]()
	parent.children = append(parent.children, child)
	return child
}

// Name returns the graph's name. Empty by default.
func (g *Graph[E]) Name() string { return g.name }

// SetName sets the graph's name. Names beginning with "cluster" may receive
// special treatment from the layout engine; the model passes them through
// unchanged.
func (g *Graph[E]) SetName(name string) { g.name = name }

// AddNode declares a node and applies the given attributes, overwriting on
// key collision. Calling AddNode again for the same name only merges
// attributes — the node is never duplicated.
func (g *Graph[E]) AddNode(name string, attrs ...Attr) {
	store, ok := g.nodes[name]
	if !ok {
		store = Attrs{}
		g.nodes[name] = store
		g.nodeOrder = append(g.nodeOrder, name)
	}
	store.merge(attrs)
}

// AddEdge inserts the edge if absent and applies the given attributes,
// overwriting on key collision. Calling AddEdge again with the same edge only
// merges attributes — the edge is never duplicated.
func (g *Graph[E]) AddEdge(e E, attrs ...Attr) {
	store, ok := g.edges[e]
	if !ok {
		store = Attrs{}
		g.edges[e] = store
		g.edgeOrder = append(g.edgeOrder, e)
	}
	store.merge(attrs)
}

// Attr returns the graph-level attribute for key, or ErrAttrNotFound.
func (g *Graph[E]) Attr(key string) (string, error) { return g.attrs.Get(key) }

// SetAttr sets a graph-level attribute.
func (g *Graph[E]) SetAttr(key, value string) { g.attrs.Set(key, value) }

// NodeAttr returns the attribute for key on the named node. It returns
// ErrNodeNotFound if the node does not exist at all, or ErrAttrNotFound if
// the node exists (declared, or referenced by an edge) but lacks the key.
func (g *Graph[E]) NodeAttr(node, key string) (string, error) {
	if store, ok := g.nodes[node]; ok {
		return store.Get(key)
	}
	if g.isEndpoint(node) {
		return "", fmt.Errorf("%w: %q", ErrAttrNotFound, key)
	}
	return "", fmt.Errorf("%w: %q", ErrNodeNotFound, node)
}

// SetNodeAttr sets an attribute on the named node, declaring the node first
// if it does not exist yet.
func (g *Graph[E]) SetNodeAttr(node, key, value string) {
	g.AddNode(node, Attr{Key: key, Value: value})
}

// EdgeAttr returns the attribute for key on the given edge. It returns
// ErrEdgeNotFound if the edge has not been added, or ErrAttrNotFound if the
// edge exists but lacks the key.
func (g *Graph[E]) EdgeAttr(e E, key string) (string, error) {
	store, ok := g.edges[e]
	if !ok {
		a, b := e.Nodes()
		return "", fmt.Errorf("%w: %s %s %s", ErrEdgeNotFound, a, e.arrow(), b)
	}
	return store.Get(key)
}

// SetEdgeAttr sets an attribute on the given edge, inserting the edge first
// if it has not been added yet.
func (g *Graph[E]) SetEdgeAttr(e E, key, value string) {
	g.AddEdge(e, Attr{Key: key, Value: value})
}

// HasNode reports whether the node exists: declared via [Graph.AddNode] or
// referenced as an endpoint of any edge.
func (g *Graph[E]) HasNode(name string) bool {
	if _, ok := g.nodes[name]; ok {
		return true
	}
	return g.isEndpoint(name)
}

// HasEdge reports whether the edge has been added to the graph.
func (g *Graph[E]) HasEdge(e E) bool {
	_, ok := g.edges[e]
	return ok
}

// Nodes returns all existing node names: declared nodes in insertion order,
// followed by endpoint-only nodes in edge insertion order.
func (g *Graph[E]) Nodes() []string {
	names := slices.Clone(g.nodeOrder)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, e := range g.edgeOrder {
		a, b := e.Nodes()
		for _, n := range []string{a, b} {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph[E]) Edges() []E { return slices.Clone(g.edgeOrder) }

// NodeCount returns the number of existing nodes (declared or endpoint-only).
func (g *Graph[E]) NodeCount() int { return len(g.Nodes()) }

// EdgeCount returns the number of edges.
func (g *Graph[E]) EdgeCount() int { return len(g.edgeOrder) }

// Subgraphs returns a copy of the child list in creation order. Children are
// appended only by [NewSubgraph]; the backing list is never exposed for
// mutation.
func (g *Graph[E]) Subgraphs() []*Graph[E] { return slices.Clone(g.children) }

// Incident returns a lazy, restartable sequence of all edges touching the
// named node at either endpoint, in edge insertion order.
func (g *Graph[E]) Incident(node string) iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, e := range g.edgeOrder {
			if e.Incident(node) && !yield(e) {
				return
			}
		}
	}
}

// Inbound returns the directed edges whose head is the named node.
func Inbound(g *Graph[Directed], node string) iter.Seq[Directed] {
	return func(yield func(Directed) bool) {
		for _, e := range g.edgeOrder {
			if e.head == node && !yield(e) {
				return
			}
		}
	}
}

// Outbound returns the directed edges whose tail is the named node.
func Outbound(g *Graph[Directed], node string) iter.Seq[Directed] {
	return func(yield func(Directed) bool) {
		for _, e := range g.edgeOrder {
			if e.tail == node && !yield(e) {
				return
			}
		}
	}
}

func (g *Graph[E]) isEndpoint(name string) bool {
	for _, e := range g.edgeOrder {
		if e.Incident(name) {
			return true
		}
	}
	return false
}
