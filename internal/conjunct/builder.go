// Public domain.

// Package conjunct finds close approaches among orbiting objects.
//
// Objects are propagated over a shared grid of epochs, the minimum
// sampled separation is found for every pair, and pairs closer than a
// threshold become edges of a conjunction graph.  Edges are then given a
// heuristic risk score.
package conjunct

import (
	"context"
	"math"
	"runtime"

	"github.com/soniakeys/coord"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soniakeys/conjunct/internal/epoch"
	"github.com/soniakeys/conjunct/internal/tle"
)

// Propagator prepares element sets for propagation.
//
// An error from Prepare means the element set cannot be used at all and
// the object is left out of the graph.
type Propagator interface {
	Prepare(r tle.Record) (Orbit, error)
}

// Orbit computes positions of one object.
//
// Position returns an inertial position in km.  An error means no
// position is available at that epoch; it removes only that sample.
// Results must be deterministic for a given epoch.
type Orbit interface {
	Position(e epoch.Epoch) (coord.Cart, error)
}

// Sample is a cached position.  OK is false where propagation failed.
type Sample struct {
	R  coord.Cart
	OK bool
}

// Builder builds conjunction graphs.
type Builder struct {
	prop Propagator
	log  *zap.Logger

	// Workers bounds goroutines used for propagation and pair search.
	// Zero means GOMAXPROCS.
	Workers int
}

// NewBuilder creates a Builder using propagator p.  A nil logger
// discards log output.
func NewBuilder(p Propagator, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{prop: p, log: log}
}

func (b *Builder) workers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Build propagates recs over grid and returns the graph of pairs whose
// minimum sampled separation is strictly less than thresholdKm.
//
// Records the propagator rejects are dropped.  Records with the same
// name collapse to one node; the last accepted record wins but the node
// keeps the position of the first accepted.  The only errors returned
// are from ctx.
func (b *Builder) Build(ctx context.Context, recs []tle.Record, grid []epoch.Epoch, thresholdKm float64) (*Graph, error) {
	nodes, orbits := b.prepare(recs)
	cache, err := b.sample(ctx, orbits, grid)
	if err != nil {
		return nil, err
	}
	edges, err := b.pairs(ctx, cache, thresholdKm)
	if err != nil {
		return nil, err
	}
	return newGraph(nodes, edges, grid, thresholdKm), nil
}

// prepare returns nodes in the order their names were first prepared
// successfully, along with their orbits.  A rejected record never
// replaces an earlier good one.
func (b *Builder) prepare(recs []tle.Record) ([]Node, []Orbit) {
	var nodes []Node
	var orbits []Orbit
	index := make(map[string]int, len(recs))
	for _, r := range recs {
		o, err := b.prop.Prepare(r)
		if err != nil {
			b.log.Warn("dropping element set", zap.String("name", r.Name), zap.Error(err))
			continue
		}
		if i, ok := index[r.Name]; ok {
			nodes[i].Record = r
			orbits[i] = o
			continue
		}
		index[r.Name] = len(nodes)
		nodes = append(nodes, Node{Name: r.Name, Record: r})
		orbits = append(orbits, o)
	}
	return nodes, orbits
}

// sample propagates each orbit at each epoch.  Each goroutine owns the
// cache slot of the orbit it works on.
func (b *Builder) sample(ctx context.Context, orbits []Orbit, grid []epoch.Epoch) ([][]Sample, error) {
	cache := make([][]Sample, len(orbits))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i, o := range orbits {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := make([]Sample, len(grid))
			for k, e := range grid {
				r, err := o.Position(e)
				if err != nil || !finite(r) {
					continue
				}
				s[k] = Sample{R: r, OK: true}
			}
			cache[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cache, nil
}

// pairs searches all pairs i < j.  Rows are searched concurrently, each
// into its own slice, then concatenated in row order.
func (b *Builder) pairs(ctx context.Context, cache [][]Sample, thresholdKm float64) ([]Edge, error) {
	rows := make([][]Edge, len(cache))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i := range cache {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < len(cache); j++ {
				d, k, ok := closest(cache[i], cache[j])
				if ok && d < thresholdKm {
					rows[i] = append(rows[i], Edge{
						U:             i,
						V:             j,
						MinDistanceKm: d,
						Closest:       k,
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var edges []Edge
	for _, r := range rows {
		edges = append(edges, r...)
	}
	return edges, nil
}

// closest returns the minimum separation over epochs where both samples
// are present, and the grid index where it occurs.  ok is false if there
// is no such epoch.
func closest(a, b []Sample) (d float64, k int, ok bool) {
	d, k = math.Inf(1), -1
	var diff coord.Cart
	for x := range a {
		if !a[x].OK || !b[x].OK {
			continue
		}
		diff.Sub(&a[x].R, &b[x].R)
		if s := math.Sqrt(diff.Square()); s < d {
			d, k = s, x
		}
	}
	return d, k, k >= 0
}

func finite(r coord.Cart) bool {
	for _, c := range [3]float64{r.X, r.Y, r.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
