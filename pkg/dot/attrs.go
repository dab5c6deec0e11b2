package dot

import (
	"fmt"
	"maps"
	"slices"
)

// Attr is a single key-value pair, used for variadic attribute arguments to
// [Graph.AddNode] and [Graph.AddEdge].
type Attr struct {
	Key   string
	Value string
}

// Attrs is a string-keyed property bag attached to a graph, node, or edge.
// Values are stored verbatim; escaping happens only at serialization time.
type Attrs map[string]string

// Get returns the value for key, or ErrAttrNotFound if the key is absent.
func (a Attrs) Get(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrAttrNotFound, key)
	}
	return v, nil
}

// Set inserts or overwrites the value for key.
func (a Attrs) Set(key, value string) { a[key] = value }

// Keys returns the attribute keys in sorted order. The serializer iterates
// in this order so output is deterministic.
func (a Attrs) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// merge applies the given pairs in order, later keys overwriting earlier ones.
func (a Attrs) merge(attrs []Attr) {
	for _, kv := range attrs {
		a[kv.Key] = kv.Value
	}
}
