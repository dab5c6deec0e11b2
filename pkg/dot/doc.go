// Package dot builds graphs in memory and writes them out in the Graphviz
// DOT language, optionally invoking a layout executable to render images.
//
// # Architecture
//
// The package has three layers:
//
//   - [Graph]: the data model — name, attribute stores, nodes, edges, and
//     parent-owned subgraphs
//   - serialization: [Graph.String], [Graph.Body], and [EscapeID] produce
//     deterministic DOT text; this is a one-way writer, no parser
//   - [Render]: a thin adapter that pipes DOT text into the external layout
//     tool and writes the resulting image to a file
//
// # Edge Variants
//
// A graph is parameterized by its edge variant, fixed for its whole lifetime:
//
//	g := dot.NewGraph()    // *Graph[Undirected], serialized as "strict graph"
//	d := dot.NewDigraph()  // *Graph[Directed], serialized as "strict digraph"
//
// [UndirectedEdge] canonicalizes endpoint order so that the unordered-pair
// equality holds with plain ==; [DirectedEdge] preserves order.
//
// # Building
//
// AddNode and AddEdge are idempotent with respect to existence — repeated
// calls merge attributes instead of duplicating entries:
//
//	d := dot.NewDigraph()
//	d.SetName("deps")
//	d.AddNode("app", dot.Attr{Key: "shape", Value: "box"})
//	d.AddEdge(dot.DirectedEdge("app", "lib"), dot.Attr{Key: "label", Value: "uses"})
//
// Subgraphs are created with [NewSubgraph] and are exclusively owned by their
// parent; there is no detach or reparent operation, which rules out inclusion
// cycles by construction.
//
// # Rendering
//
//	err := d.Render("deps.svg", dot.WithEngine("dot"))
//
// The format is inferred from the destination extension. A missing executable
// surfaces the launch error unmodified; a non-zero exit surfaces as
// [*RenderError] with the exit code and captured stderr.
//
// # Concurrency
//
// Graphs are single-owner: mutation methods are not safe for concurrent use
// without external synchronization. Serialization only reads the structure.
package dot
