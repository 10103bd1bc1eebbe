// Public domain.

package conjunct

import (
	"fmt"
	"math"
	"sort"
)

// RiskScore is a heuristic risk value in [0,1] for a conjunction.
//
// Risk falls off linearly with distance, reaching zero at 100 km, and is
// raised 10% for each edge beyond the first on the busier endpoint.  The
// model is a placeholder, not a calibrated collision probability.
// A distance that is not finite scores 0.
func RiskScore(distanceKm float64, degree int) float64 {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 0
	}
	if degree < 1 {
		degree = 1
	}
	raw := math.Max(0, 1-distanceKm/100) * (1 + .1*float64(degree-1))
	return math.Min(math.Max(raw, 0), 1)
}

// Score returns a copy of g with a risk value on every edge, along with
// the values by node pair.  Degrees are those of the finished graph.
func Score(g *Graph) (*Graph, map[Pair]float64) {
	edges := g.Edges()
	scores := make(map[Pair]float64, len(edges))
	for x := range edges {
		e := &edges[x]
		deg := max(g.degree[e.U], g.degree[e.V], 1)
		e.Risk = RiskScore(e.MinDistanceKm, deg)
		scores[e.Pair()] = e.Risk
	}
	s := newGraph(g.nodes, edges, g.grid, g.threshold)
	s.scored = true
	return s, scores
}

// Explain returns a one line description of edge e.
func Explain(g *Graph, e Edge) string {
	u, v := g.nodes[e.U].Name, g.nodes[e.V].Name
	if !g.scored {
		return fmt.Sprintf("No detailed data for %s - %s.", u, v)
	}
	s := fmt.Sprintf("Satellites %s and %s: min distance ~ %.1f km → risk score %.2f.",
		u, v, e.MinDistanceKm, e.Risk)
	if g.degree[e.U] > 2 || g.degree[e.V] > 2 {
		s += " High node degree increases conjunction clustering risk."
	}
	return s
}

// Ranked returns edges ordered by decreasing risk.  Ties go to the closer
// pair, then to node order.
func (g *Graph) Ranked() []Edge {
	r := g.Edges()
	sort.SliceStable(r, func(i, j int) bool {
		a, b := r[i], r[j]
		switch {
		case a.Risk != b.Risk:
			return a.Risk > b.Risk
		case a.MinDistanceKm != b.MinDistanceKm:
			return a.MinDistanceKm < b.MinDistanceKm
		case a.U != b.U:
			return a.U < b.U
		}
		return a.V < b.V
	})
	return r
}
