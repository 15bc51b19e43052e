// Package dataflow builds the intra-file data-flow graph, runs the worklist
// taint propagation over it, and synthesizes source-to-sink flows. It is the
// core of the engine: everything upstream (parsing, classification) feeds it
// and everything downstream (reporting, persistence) consumes its output.
package dataflow

import (
	"fmt"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

// Edge is one directed taint-propagation step between two graph nodes.
// Weight is the fraction of confidence that survives traversal.
type Edge struct {
	From   string
	To     string
	Op     schemas.OperationKind
	File   string
	Line   int
	Weight float64
}

// Graph is a directed multigraph over variable names and synthetic call
// argument nodes. Multiple edges between the same pair are kept: different
// lines connect the same variables through different operations.
type Graph struct {
	out   map[string][]Edge
	nodes map[string]struct{}
	edges int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		out:   make(map[string][]Edge),
		nodes: make(map[string]struct{}),
	}
}

// AddEdge inserts an edge. Zero-weight edges are dropped at the door: they
// can never move taint, and keeping them out bounds the worklist.
func (g *Graph) AddEdge(e Edge) {
	if e.Weight <= 0 || e.From == "" || e.To == "" || e.From == e.To {
		return
	}
	g.out[e.From] = append(g.out[e.From], e)
	g.nodes[e.From] = struct{}{}
	g.nodes[e.To] = struct{}{}
	g.edges++
}

// Out returns the outgoing edges of a node.
func (g *Graph) Out(node string) []Edge {
	return g.out[node]
}

// NodeCount returns the number of distinct nodes seen on any edge.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int { return g.edges }

// ArgNode names the synthetic graph node standing in for one argument
// position of one call site. Taint flowing into the node means the call
// receives a tainted value at that position.
func ArgNode(callee string, index int, file string, line int) string {
	return fmt.Sprintf("%s#arg%d@%s:%d", callee, index, file, line)
}
