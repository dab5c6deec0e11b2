package dot

import "hash/fnv"

// Relation is the type-parameter constraint for the two edge variants a
// [Graph] can carry: [Undirected] and [Directed]. The unexported grammar
// methods close the set, so a graph's variant is fixed at construction and
// cannot be mixed or extended from outside the package.
type Relation interface {
	comparable

	// Nodes returns the two endpoints of the relation.
	Nodes() (string, string)

	// Incident reports whether name is one of the relation's endpoints.
	Incident(name string) bool

	// Hash returns a hash value consistent with == on the relation.
	Hash() uint64

	arrow() string
	keyword() string
}

// Undirected is an unordered pair of node names. UndirectedEdge canonicalizes
// endpoint order, so UndirectedEdge(a, b) == UndirectedEdge(b, a) holds with
// plain struct equality and undirected edges can be used as map keys.
type Undirected struct {
	a, b string
}

// UndirectedEdge creates an undirected edge between a and b.
// Self-loops (a == b) are allowed.
func UndirectedEdge(a, b string) Undirected {
	if b < a {
		a, b = b, a
	}
	return Undirected{a: a, b: b}
}

// Nodes returns the endpoints in canonical (lexicographic) order.
func (e Undirected) Nodes() (string, string) { return e.a, e.b }

// Incident reports whether name is an endpoint of the edge.
func (e Undirected) Incident(name string) bool { return e.a == name || e.b == name }

// Hash returns a hash symmetric in the two endpoints: the per-endpoint
// hashes are combined with addition, so Hash(a,b) == Hash(b,a).
func (e Undirected) Hash() uint64 { return hashName(e.a) + hashName(e.b) }

func (e Undirected) arrow() string   { return "--" }
func (e Undirected) keyword() string { return "graph" }

// Directed is an ordered pair of node names. DirectedEdge(a, b) and
// DirectedEdge(b, a) are distinct edges unless a == b.
type Directed struct {
	tail, head string
}

// DirectedEdge creates a directed edge from tail to head.
// Self-loops (tail == head) are allowed.
func DirectedEdge(tail, head string) Directed {
	return Directed{tail: tail, head: head}
}

// Tail returns the source endpoint.
func (e Directed) Tail() string { return e.tail }

// Head returns the target endpoint.
func (e Directed) Head() string { return e.head }

// Nodes returns (tail, head).
func (e Directed) Nodes() (string, string) { return e.tail, e.head }

// Incident reports whether name is an endpoint of the edge.
func (e Directed) Incident(name string) bool { return e.tail == name || e.head == name }

// Hash incorporates endpoint order: tail and head are fed through a single
// FNV-1a stream with a separator, so Hash(a,b) != Hash(b,a) in general.
func (e Directed) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(e.tail))
	h.Write([]byte{0})
	h.Write([]byte(e.head))
	return h.Sum64()
}

func (e Directed) arrow() string   { return "->" }
func (e Directed) keyword() string { return "digraph" }

func hashName(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
