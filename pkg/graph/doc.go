// Package graph models the plugin dependency graph for one resolution pass.
//
// # Overview
//
// This package holds plugin nodes and their requirement edges, computes a
// deterministic installation order, detects circular dependencies, and
// answers impact questions (who depends on a given plugin).
//
// # Key Features
//
// Installation Order: Topological sort with dependencies before dependents
// Circular Detection: Find and report circular requirement chains
// Conflict Signal: Every requirement edge is retained, so competing ranges
// on the same plugin stay visible to the conflict resolver
// Impact Analysis: Show which plugins are affected by a change
//
// # Usage Example
//
// Build a graph and compute the install order:
//
//	g := graph.NewDependencyGraph()
//	g.AddNode("logger", "1.4.0")
//	g.AddNode("formatter", "2.1.0")
//	if err := g.AddEdge("formatter", "logger", "^1.0.0"); err != nil {
//		return err
//	}
//
//	order, err := g.Resolve()
//	var cycle *graph.CycleError
//	if errors.As(err, &cycle) {
//		fmt.Printf("cycle: %s\n", strings.Join(cycle.Path, " -> "))
//	}
//
// Diagnostic cycle report:
//
//	for _, cycle := range g.DetectCycles() {
//		fmt.Printf("  %s\n", strings.Join(cycle, " -> "))
//	}
//
// # Related Packages
//
//   - pkg/conflict: Resolves competing version requirements
//   - pkg/resolver: Drives graph construction from plugin manifests
package graph
