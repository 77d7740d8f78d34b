package graph

import (
	"fmt"
	"strings"
)

// Node is a plugin pinned at one version within a resolution pass. A graph
// never holds two versions of the same plugin; conflicts are resolved before
// or while building the final node set.
type Node struct {
	Name    string
	Version string
}

// Edge records that From requires To at a version inside Range. Multiple
// edges may target the same plugin with different ranges; that is the raw
// conflict signal, so edges are never deduplicated.
type Edge struct {
	From  string
	To    string
	Range string
}

// DependencyGraph holds nodes and requirement edges for one resolution pass.
//
// Insertion order of nodes and edges is preserved and used as the tie-break
// everywhere, so identical input always produces identical output.
type DependencyGraph struct {
	nodes map[string]*Node
	order []string
	out   map[string][]Edge
	edges []Edge
}

// NewDependencyGraph creates an empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Node),
		out:   make(map[string][]Edge),
	}
}

// AddNode upserts a plugin node. Calling it again for the same name replaces
// the version (last write wins); callers re-add a node after conflict
// resolution settles on a different version.
func (g *DependencyGraph) AddNode(name, version string) {
	if existing, ok := g.nodes[name]; ok {
		existing.Version = version
		return
	}
	g.nodes[name] = &Node{Name: name, Version: version}
	g.order = append(g.order, name)
}

// AddEdge appends a requirement edge. Both endpoints must already be nodes;
// a dangling edge is an input error, not something to drop silently.
func (g *DependencyGraph) AddEdge(from, to, versionRange string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("graph: edge %s -> %s: unknown node %q", from, to, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("graph: edge %s -> %s: unknown node %q", from, to, to)
	}
	edge := Edge{From: from, To: to, Range: versionRange}
	g.out[from] = append(g.out[from], edge)
	g.edges = append(g.edges, edge)
	return nil
}

// Node returns the node for name, if present.
func (g *DependencyGraph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in insertion order.
func (g *DependencyGraph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.order))
	for _, name := range g.order {
		nodes = append(nodes, *g.nodes[name])
	}
	return nodes
}

// Edges returns all edges in insertion order.
func (g *DependencyGraph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// RequirementsOn returns every edge targeting name, in insertion order. More
// than one distinct range here means a version conflict.
func (g *DependencyGraph) RequirementsOn(name string) []Edge {
	reqs := make([]Edge, 0)
	for _, edge := range g.edges {
		if edge.To == name {
			reqs = append(reqs, edge)
		}
	}
	return reqs
}

// CycleError reports a circular dependency. Path holds the full cycle with
// the entry node repeated at the end, e.g. ["a", "b", "a"].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "graph: circular dependency: " + strings.Join(e.Path, " -> ")
}

// DFS coloring: white = unvisited, gray = on the current path, black = done.
const (
	white = iota
	gray
	black
)

type frame struct {
	name string
	next int
}

// Resolve computes an installation order with every dependency before its
// dependents. The walk is an explicit-stack DFS, so graph depth never risks
// the goroutine stack. A cycle aborts the whole resolution; no partial order
// is ever returned.
func (g *DependencyGraph) Resolve() ([]string, error) {
	color := make(map[string]int, len(g.order))
	order := make([]string, 0, len(g.order))

	for _, root := range g.order {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack := []frame{{name: root}}

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			edges := g.out[f.name]
			if f.next < len(edges) {
				dep := edges[f.next].To
				f.next++
				switch color[dep] {
				case white:
					color[dep] = gray
					stack = append(stack, frame{name: dep})
				case gray:
					return nil, &CycleError{Path: cyclePath(stack, dep)}
				}
			} else {
				color[f.name] = black
				order = append(order, f.name)
				stack = stack[:len(stack)-1]
			}
		}
	}
	return order, nil
}

// DetectCycles runs the same walk as Resolve but collects every cycle found
// instead of aborting on the first. Intended for diagnostic reporting.
func (g *DependencyGraph) DetectCycles() [][]string {
	color := make(map[string]int, len(g.order))
	cycles := make([][]string, 0)

	for _, root := range g.order {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack := []frame{{name: root}}

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			edges := g.out[f.name]
			if f.next < len(edges) {
				dep := edges[f.next].To
				f.next++
				switch color[dep] {
				case white:
					color[dep] = gray
					stack = append(stack, frame{name: dep})
				case gray:
					cycles = append(cycles, cyclePath(stack, dep))
				}
			} else {
				color[f.name] = black
				stack = stack[:len(stack)-1]
			}
		}
	}
	return cycles
}

// cyclePath extracts the cycle from the DFS stack: everything from the first
// occurrence of entry up to the top, closed by repeating entry.
func cyclePath(stack []frame, entry string) []string {
	start := 0
	for i, f := range stack {
		if f.name == entry {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.name)
	}
	return append(path, entry)
}

// Dependents returns the plugins that directly require name, deduplicated,
// in insertion order of their first requirement.
func (g *DependencyGraph) Dependents(name string) []string {
	seen := make(map[string]bool)
	dependents := make([]string, 0)
	for _, edge := range g.edges {
		if edge.To != name || seen[edge.From] {
			continue
		}
		seen[edge.From] = true
		dependents = append(dependents, edge.From)
	}
	return dependents
}

// TransitiveDependents returns every plugin that directly or indirectly
// requires name. Useful for impact analysis before changing a plugin.
func (g *DependencyGraph) TransitiveDependents(name string) []string {
	seen := map[string]bool{name: true}
	result := make([]string, 0)

	queue := []string{name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range g.Dependents(current) {
			if seen[dependent] {
				continue
			}
			seen[dependent] = true
			result = append(result, dependent)
			queue = append(queue, dependent)
		}
	}
	return result
}
