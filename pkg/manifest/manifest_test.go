package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
kind = "digraph"
name = "deps"

[graph]
rankdir = "LR"

[[node]]
name = "app"
attrs = { shape = "box" }

[[edge]]
from = "app"
to = "lib"
attrs = { label = "uses" }

[[subgraph]]
name = "cluster_backend"

  [[subgraph.node]]
  name = "db"

  [[subgraph.edge]]
  from = "lib"
  to = "db"
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Kind != KindDigraph {
		t.Errorf("Kind = %q, want %q", m.Kind, KindDigraph)
	}
	if m.Name != "deps" {
		t.Errorf("Name = %q, want %q", m.Name, "deps")
	}
	if len(m.Nodes) != 1 || m.Nodes[0].Name != "app" {
		t.Errorf("Nodes = %+v, want one node named app", m.Nodes)
	}
	if len(m.Edges) != 1 || m.Edges[0].From != "app" || m.Edges[0].To != "lib" {
		t.Errorf("Edges = %+v, want app -> lib", m.Edges)
	}
	if len(m.Subgraphs) != 1 || m.Subgraphs[0].Name != "cluster_backend" {
		t.Fatalf("Subgraphs = %+v, want one named cluster_backend", m.Subgraphs)
	}
	if len(m.Subgraphs[0].Nodes) != 1 || m.Subgraphs[0].Nodes[0].Name != "db" {
		t.Errorf("subgraph nodes = %+v, want db", m.Subgraphs[0].Nodes)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "deps" {
		t.Errorf("Name = %q, want %q", m.Name, "deps")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestDOT(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := m.DOT()
	if err != nil {
		t.Fatalf("DOT: %v", err)
	}
	for _, want := range []string{
		"strict digraph deps {",
		"subgraph cluster_backend {",
		"rankdir=LR;",
		`app [shape=box];`,
		`app -> lib [label=uses];`,
		"lib -> db;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
}

func TestDOTUndirected(t *testing.T) {
	m := &Manifest{
		Kind: KindGraph,
		Body: Body{
			Name:  "net",
			Edges: []Edge{{From: "a", To: "b"}},
		},
	}
	out, err := m.DOT()
	if err != nil {
		t.Fatalf("DOT: %v", err)
	}
	if !strings.Contains(out, "strict graph net {") {
		t.Errorf("missing undirected header:\n%s", out)
	}
	if !strings.Contains(out, "a -- b;") {
		t.Errorf("missing undirected edge:\n%s", out)
	}
}

func TestKindDefaultsToDigraph(t *testing.T) {
	m := &Manifest{Body: Body{Edges: []Edge{{From: "x", To: "y"}}}}
	if !m.Directed() {
		t.Error("empty kind should default to directed")
	}
	out, err := m.DOT()
	if err != nil {
		t.Fatalf("DOT: %v", err)
	}
	if !strings.Contains(out, "x -> y;") {
		t.Errorf("missing directed edge:\n%s", out)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		m    Manifest
		want error
	}{
		{
			name: "unknown kind",
			m:    Manifest{Kind: "multigraph"},
			want: ErrUnknownKind,
		},
		{
			name: "unnamed node",
			m:    Manifest{Body: Body{Nodes: []Node{{}}}},
			want: ErrUnnamedNode,
		},
		{
			name: "dangling edge",
			m:    Manifest{Body: Body{Edges: []Edge{{From: "a"}}}},
			want: ErrMissingEndpoint,
		},
		{
			name: "nested failure",
			m: Manifest{Body: Body{
				Subgraphs: []Body{{Edges: []Edge{{To: "b"}}}},
			}},
			want: ErrMissingEndpoint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestKindMismatch(t *testing.T) {
	directed := &Manifest{Kind: KindDigraph}
	if _, err := directed.Undirected(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Undirected() on digraph manifest = %v, want ErrKindMismatch", err)
	}

	undirected := &Manifest{Kind: KindGraph}
	if _, err := undirected.Digraph(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Digraph() on graph manifest = %v, want ErrKindMismatch", err)
	}

	g, err := directed.Digraph()
	if err != nil {
		t.Fatalf("Digraph: %v", err)
	}
	if g == nil {
		t.Fatal("Digraph returned nil graph")
	}
}
