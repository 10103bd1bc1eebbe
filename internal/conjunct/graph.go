// Public domain.

package conjunct

import (
	"github.com/soniakeys/conjunct/internal/epoch"
	"github.com/soniakeys/conjunct/internal/tle"
)

// Node is an object in the graph.  The element set is kept for
// traceability only.
type Node struct {
	Name   string
	Record tle.Record
}

// Pair identifies an unordered node pair by node index, U < V.
type Pair struct {
	U, V int
}

// Edge is a conjunction between nodes U and V, U < V.
type Edge struct {
	U, V          int
	MinDistanceKm float64 // minimum sampled separation
	Closest       int     // grid index where the minimum occurred
	Risk          float64 // set by Score
}

// Pair returns the node pair of e.
func (e Edge) Pair() Pair { return Pair{e.U, e.V} }

// Graph is a conjunction graph.  Nodes are held in an arena indexed by
// position, edges in a list ordered by node pair.  A Graph is not
// modified after construction; scoring produces a new Graph.
type Graph struct {
	nodes     []Node
	edges     []Edge
	degree    []int
	index     map[string]int
	edgeIndex map[Pair]int
	grid      []epoch.Epoch
	threshold float64
	scored    bool
}

// newGraph builds the lookup tables for nodes and edges.  Edges must
// already be unique, ordered, and satisfy the threshold.
func newGraph(nodes []Node, edges []Edge, grid []epoch.Epoch, threshold float64) *Graph {
	g := &Graph{
		nodes:     nodes,
		edges:     edges,
		degree:    make([]int, len(nodes)),
		index:     make(map[string]int, len(nodes)),
		edgeIndex: make(map[Pair]int, len(edges)),
		grid:      grid,
		threshold: threshold,
	}
	for i, n := range nodes {
		g.index[n.Name] = i
	}
	for x, e := range edges {
		g.degree[e.U]++
		g.degree[e.V]++
		g.edgeIndex[e.Pair()] = x
	}
	return g
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Nodes returns a copy of the node list in node order.
func (g *Graph) Nodes() []Node { return append([]Node(nil), g.nodes...) }

// Edges returns a copy of the edge list, ordered by U then V.
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// Node returns node i.
func (g *Graph) Node(i int) Node { return g.nodes[i] }

// Index returns the node index for an object name.
func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Degree returns the number of edges incident to node i.
func (g *Graph) Degree(i int) int { return g.degree[i] }

// Edge returns the edge between the named objects, in either order.
func (g *Graph) Edge(a, b string) (Edge, bool) {
	u, ok := g.index[a]
	if !ok {
		return Edge{}, false
	}
	v, ok := g.index[b]
	if !ok {
		return Edge{}, false
	}
	if u > v {
		u, v = v, u
	}
	x, ok := g.edgeIndex[Pair{u, v}]
	if !ok {
		return Edge{}, false
	}
	return g.edges[x], true
}

// Grid returns a copy of the epochs the graph was sampled on.
func (g *Graph) Grid() []epoch.Epoch { return append([]epoch.Epoch(nil), g.grid...) }

// ClosestEpoch returns the grid epoch at which e reached its minimum.
func (g *Graph) ClosestEpoch(e Edge) epoch.Epoch { return g.grid[e.Closest] }

// Threshold returns the separation threshold, in km, edges were built with.
func (g *Graph) Threshold() float64 { return g.threshold }

// Scored reports whether risk values have been assigned.
func (g *Graph) Scored() bool { return g.scored }
