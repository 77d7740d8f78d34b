package graph

import (
	"errors"
	"strings"
	"testing"
)

func TestDependencyGraph_AddNode(t *testing.T) {
	g := NewDependencyGraph()

	g.AddNode("logger", "1.0.0")

	node, ok := g.Node("logger")
	if !ok {
		t.Fatal("Expected node to be added")
	}
	if node.Version != "1.0.0" {
		t.Errorf("Expected version '1.0.0', got %s", node.Version)
	}

	// Upsert: last write wins for the version.
	g.AddNode("logger", "1.2.0")

	node, _ = g.Node("logger")
	if node.Version != "1.2.0" {
		t.Errorf("Expected version '1.2.0' after upsert, got %s", node.Version)
	}
	if len(g.Nodes()) != 1 {
		t.Errorf("Expected 1 node after upsert, got %d", len(g.Nodes()))
	}
}

func TestDependencyGraph_AddEdgeUnknownNode(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", "1.0.0")

	if err := g.AddEdge("a", "missing", "^1.0.0"); err == nil {
		t.Error("Expected error for edge to unknown node")
	}
	if err := g.AddEdge("missing", "a", "^1.0.0"); err == nil {
		t.Error("Expected error for edge from unknown node")
	}
}

func TestDependencyGraph_DuplicateEdgesRetained(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a", "1.0.0")
	g.AddNode("b", "1.0.0")

	if err := g.AddEdge("a", "b", "^1.0.0"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("a", "b", "~1.0.0"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	reqs := g.RequirementsOn("b")
	if len(reqs) != 2 {
		t.Fatalf("Expected 2 requirements on 'b', got %d", len(reqs))
	}
	if reqs[0].Range != "^1.0.0" || reqs[1].Range != "~1.0.0" {
		t.Errorf("Expected requirement ranges in insertion order, got %v", reqs)
	}
}

func TestDependencyGraph_Resolve(t *testing.T) {
	g := NewDependencyGraph()

	// c depends on b, b depends on a.
	g.AddNode("a", "1.0.0")
	g.AddNode("b", "2.0.0")
	g.AddNode("c", "1.1.0")
	if err := g.AddEdge("c", "b", "^2.0.0"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("b", "a", "^1.0.0"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	order, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("Expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected order %v, got %v", want, order)
			break
		}
	}
}

func TestDependencyGraph_ResolveDeterministic(t *testing.T) {
	build := func() *DependencyGraph {
		g := NewDependencyGraph()
		// No ordering constraints between these at all.
		g.AddNode("zeta", "1.0.0")
		g.AddNode("alpha", "1.0.0")
		g.AddNode("mid", "1.0.0")
		return g
	}

	first, err := build().Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Unconstrained nodes come out in insertion order, every time.
	want := []string{"zeta", "alpha", "mid"}
	for run := 0; run < 20; run++ {
		order, err := build().Resolve()
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		for i := range want {
			if order[i] != want[i] || order[i] != first[i] {
				t.Fatalf("Run %d: expected %v, got %v", run, want, order)
			}
		}
	}
}

func TestDependencyGraph_ResolveCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("x", "1.0.0")
	g.AddNode("y", "1.0.0")
	if err := g.AddEdge("x", "y", "^1.0.0"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("y", "x", "^1.0.0"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	_, err := g.Resolve()
	if err == nil {
		t.Fatal("Expected cycle error")
	}

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expected *CycleError, got %T", err)
	}

	path := strings.Join(cycle.Path, " -> ")
	if !strings.Contains(path, "x") || !strings.Contains(path, "y") {
		t.Errorf("Expected cycle path to contain both nodes, got %s", path)
	}
	if cycle.Path[0] != cycle.Path[len(cycle.Path)-1] {
		t.Errorf("Expected cycle path to close on its entry node, got %s", path)
	}
}

func TestDependencyGraph_ResolveSelfCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("loop", "1.0.0")
	if err := g.AddEdge("loop", "loop", "*"); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	_, err := g.Resolve()
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expected *CycleError, got %v", err)
	}
	if len(cycle.Path) != 2 || cycle.Path[0] != "loop" {
		t.Errorf("Expected path [loop loop], got %v", cycle.Path)
	}
}

func TestDependencyGraph_DetectCycles(t *testing.T) {
	tests := []struct {
		name       string
		buildGraph func(*DependencyGraph)
		wantCycles int
	}{
		{
			name: "no cycle",
			buildGraph: func(g *DependencyGraph) {
				g.AddNode("base", "1.0.0")
				g.AddNode("common", "1.0.0")
				g.AddEdge("common", "base", "^1.0.0")
			},
			wantCycles: 0,
		},
		{
			name: "two node cycle",
			buildGraph: func(g *DependencyGraph) {
				g.AddNode("x", "1.0.0")
				g.AddNode("y", "1.0.0")
				g.AddEdge("x", "y", "^1.0.0")
				g.AddEdge("y", "x", "^1.0.0")
			},
			wantCycles: 1,
		},
		{
			name: "two independent cycles",
			buildGraph: func(g *DependencyGraph) {
				g.AddNode("a", "1.0.0")
				g.AddNode("b", "1.0.0")
				g.AddNode("c", "1.0.0")
				g.AddNode("d", "1.0.0")
				g.AddEdge("a", "b", "*")
				g.AddEdge("b", "a", "*")
				g.AddEdge("c", "d", "*")
				g.AddEdge("d", "c", "*")
			},
			wantCycles: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewDependencyGraph()
			tt.buildGraph(g)

			cycles := g.DetectCycles()
			if len(cycles) != tt.wantCycles {
				t.Errorf("Expected %d cycles, got %d: %v", tt.wantCycles, len(cycles), cycles)
			}
		})
	}
}

func TestDependencyGraph_Dependents(t *testing.T) {
	g := NewDependencyGraph()

	// Both user and order depend on common; api depends on user.
	g.AddNode("common", "1.0.0")
	g.AddNode("user", "1.0.0")
	g.AddNode("order", "1.0.0")
	g.AddNode("api", "1.0.0")
	g.AddEdge("user", "common", "^1.0.0")
	g.AddEdge("order", "common", "^1.0.0")
	g.AddEdge("api", "user", "^1.0.0")

	direct := g.Dependents("common")
	if len(direct) != 2 {
		t.Fatalf("Expected 2 direct dependents, got %d", len(direct))
	}

	all := g.TransitiveDependents("common")
	found := make(map[string]bool)
	for _, name := range all {
		found[name] = true
	}
	if !found["user"] || !found["order"] || !found["api"] {
		t.Errorf("Expected user, order and api in transitive dependents, got %v", all)
	}
}
