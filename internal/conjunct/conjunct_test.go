// Public domain.

package conjunct_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soniakeys/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/conjunct/internal/conjunct"
	"github.com/soniakeys/conjunct/internal/epoch"
	"github.com/soniakeys/conjunct/internal/tle"
)

var (
	errReject   = errors.New("rejected")
	errNoSample = errors.New("no sample")
	base        = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

// track gives a position by minutes after the grid base.  ok false is a
// propagation failure.
type track func(minute int) (r coord.Cart, ok bool)

func (t track) Position(e epoch.Epoch) (coord.Cart, error) {
	r, ok := t(e.Offset)
	if !ok {
		return coord.Cart{}, errNoSample
	}
	return r, nil
}

// fakeProp propagates by record name.  Names not in the map are rejected,
// as are records with line 1 "1 corrupt".
type fakeProp struct {
	tracks   map[string]track
	prepared atomic.Int32
}

func (p *fakeProp) Prepare(r tle.Record) (conjunct.Orbit, error) {
	p.prepared.Add(1)
	t, ok := p.tracks[r.Name]
	if !ok || r.Line1 == "1 corrupt" {
		return nil, errReject
	}
	return t, nil
}

// offset moves along x with time, displaced by d.
func offset(d coord.Cart) track {
	return func(m int) (coord.Cart, bool) {
		return coord.Cart{X: 7000 + float64(m) + d.X, Y: d.Y, Z: d.Z}, true
	}
}

func never(int) (coord.Cart, bool) { return coord.Cart{}, false }

func recs(names ...string) []tle.Record {
	r := make([]tle.Record, len(names))
	for i, n := range names {
		r[i] = tle.Record{Name: n, Line1: "1 " + n, Line2: "2 " + n}
	}
	return r
}

func grid(t *testing.T, horizon, step int) []epoch.Epoch {
	g, err := epoch.Grid(base, horizon, step)
	require.NoError(t, err)
	return g
}

func build(t *testing.T, p *fakeProp, r []tle.Record, thresh float64) *conjunct.Graph {
	g, err := conjunct.NewBuilder(p, nil).Build(context.Background(), r, grid(t, 60, 10), thresh)
	require.NoError(t, err)
	return g
}

func TestConstantSeparation(t *testing.T) {
	p := &fakeProp{tracks: map[string]track{
		"A": offset(coord.Cart{}),
		"B": offset(coord.Cart{Y: 5}),
	}}
	g := build(t, p, recs("A", "B"), 50)
	require.Equal(t, 1, g.NumEdges())
	e, ok := g.Edge("B", "A")
	require.True(t, ok)
	assert.Equal(t, 5., e.MinDistanceKm)

	s, scores := conjunct.Score(g)
	e, _ = s.Edge("A", "B")
	assert.InDelta(t, .95, e.Risk, 1e-12)
	assert.InDelta(t, .95, scores[conjunct.Pair{U: 0, V: 1}], 1e-12)

	// equality with the threshold is not a conjunction.
	g = build(t, p, recs("A", "B"), 5)
	assert.Equal(t, 2, g.NumNodes())
	assert.Equal(t, 0, g.NumEdges())
}

func TestDegreeAmplification(t *testing.T) {
	p := &fakeProp{tracks: map[string]track{
		"A": offset(coord.Cart{}),
		"B": offset(coord.Cart{Y: 3}),
		"C": offset(coord.Cart{Z: 3}),
	}}
	g, _ := conjunct.Score(build(t, p, recs("A", "B", "C"), 4))
	// B-C are 4.24 km apart.
	require.Equal(t, 2, g.NumEdges())
	a, _ := g.Index("A")
	assert.Equal(t, 2, g.Degree(a))
	ab, _ := g.Edge("A", "B")
	ac, _ := g.Edge("A", "C")
	assert.InDelta(t, .97, conjunct.RiskScore(3, 1), 1e-12)
	// .97 * 1.1 clips to 1.
	assert.Equal(t, 1., ab.Risk)
	assert.Equal(t, 1., ac.Risk)
	_, ok := g.Edge("B", "C")
	assert.False(t, ok)
}

func TestMissingData(t *testing.T) {
	even := func(m int) (coord.Cart, bool) {
		r, _ := offset(coord.Cart{})(m)
		return r, m%20 == 0
	}
	odd := func(m int) (coord.Cart, bool) {
		r, _ := offset(coord.Cart{Y: 1})(m)
		return r, m%20 != 0
	}
	p := &fakeProp{tracks: map[string]track{
		"A":    offset(coord.Cart{}),
		"dark": never,
		"even": even,
		"odd":  odd,
	}}
	g := build(t, p, recs("A", "dark", "even", "odd"), 100)
	dark, ok := g.Index("dark")
	require.True(t, ok)
	assert.Equal(t, 0, g.Degree(dark))
	// even and odd never have a sample at the same epoch.
	_, ok = g.Edge("even", "odd")
	assert.False(t, ok)
	_, ok = g.Edge("A", "even")
	assert.True(t, ok)
	_, ok = g.Edge("A", "odd")
	assert.True(t, ok)
}

func TestMissingSampleSkipped(t *testing.T) {
	// B dips to 1 km from A at minute 30 but has no sample there.
	p := &fakeProp{tracks: map[string]track{
		"A": offset(coord.Cart{}),
		"B": func(m int) (coord.Cart, bool) {
			switch m {
			case 30:
				r, _ := offset(coord.Cart{Y: 1})(m)
				return r, false
			case 40:
				return offset(coord.Cart{Y: 8})(m)
			}
			return offset(coord.Cart{Y: 20 + float64(m)})(m)
		},
	}}
	g := build(t, p, recs("A", "B"), 10)
	e, ok := g.Edge("A", "B")
	require.True(t, ok)
	assert.Equal(t, 8., e.MinDistanceKm)
	assert.Equal(t, 4, e.Closest)
	assert.Equal(t, 40, g.ClosestEpoch(e).Offset)
}

func TestNonFinitePositionIsMissing(t *testing.T) {
	p := &fakeProp{tracks: map[string]track{
		"A": offset(coord.Cart{}),
		"B": func(int) (coord.Cart, bool) { return coord.Cart{X: math.NaN()}, true },
	}}
	g := build(t, p, recs("A", "B"), 1e9)
	assert.Equal(t, 0, g.NumEdges())
}

func TestRejectedAndDuplicateRecords(t *testing.T) {
	p := &fakeProp{tracks: map[string]track{
		"A": offset(coord.Cart{}),
		"B": offset(coord.Cart{Y: 2}),
	}}
	r := recs("A", "bad", "B")
	dup := tle.Record{Name: "A", Line1: "1 newer", Line2: "2 newer"}
	r = append(r, dup)
	g := build(t, p, r, 10)
	require.Equal(t, 2, g.NumNodes())
	_, ok := g.Index("bad")
	assert.False(t, ok)
	a, _ := g.Index("A")
	assert.Equal(t, 0, a)
	assert.Equal(t, dup, g.Node(a).Record)
	assert.Equal(t, 1, g.NumEdges())
}

func TestRejectedDuplicateKeepsEarlier(t *testing.T) {
	p := &fakeProp{tracks: map[string]track{
		"A": offset(coord.Cart{}),
		"B": offset(coord.Cart{Y: 2}),
	}}
	r := recs("A", "B")
	good := r[0]
	r = append(r, tle.Record{Name: "A", Line1: "1 corrupt", Line2: "2 corrupt"})
	g := build(t, p, r, 10)
	require.Equal(t, 2, g.NumNodes())
	a, ok := g.Index("A")
	require.True(t, ok)
	assert.Equal(t, 0, a)
	assert.Equal(t, good, g.Node(a).Record)
	_, ok = g.Edge("A", "B")
	assert.True(t, ok)

	// first accepted record sets the position.
	r = append([]tle.Record{{Name: "A", Line1: "1 corrupt", Line2: "2 corrupt"}}, recs("B", "A")...)
	g = build(t, p, r, 10)
	require.Equal(t, 2, g.NumNodes())
	a, _ = g.Index("A")
	assert.Equal(t, 1, a)
}

func TestEmpty(t *testing.T) {
	p := &fakeProp{}
	g := build(t, p, nil, 10)
	assert.Equal(t, 0, g.NumNodes())
	assert.Equal(t, 0, g.NumEdges())
	s, scores := conjunct.Score(g)
	assert.Empty(t, scores)
	assert.Equal(t, 0, s.NumEdges())
	assert.Empty(t, conjunct.Summarize(s, 10).Edges)

	// nothing survives preparation
	g = build(t, p, recs("x", "y"), 10)
	assert.Equal(t, 0, g.NumNodes())
}

// randomTracks returns n objects wandering in a box a few tens of km
// across, so that some pairs come within threshold and others do not.
// Some samples fail.
func randomTracks(n, epochs int) map[string]track {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(3)
	m := make(map[string]track, n)
	for i := 0; i < n; i++ {
		pos := make([]coord.Cart, epochs)
		ok := make([]bool, epochs)
		for k := range pos {
			pos[k] = coord.Cart{
				X: 40 * rnd.Float64(),
				Y: 40 * rnd.Float64(),
				Z: 40 * rnd.Float64(),
			}
			ok[k] = rnd.Float64() > .2
		}
		m[fmt.Sprint("obj", i)] = func(m int) (coord.Cart, bool) {
			return pos[m/10], ok[m/10]
		}
	}
	return m
}

func bruteMin(a, b track) (float64, bool) {
	d := math.Inf(1)
	for m := 0; m <= 60; m += 10 {
		ra, okA := a(m)
		rb, okB := b(m)
		if !okA || !okB {
			continue
		}
		dx, dy, dz := ra.X-rb.X, ra.Y-rb.Y, ra.Z-rb.Z
		d = math.Min(d, math.Sqrt(dx*dx+dy*dy+dz*dz))
	}
	return d, !math.IsInf(d, 1)
}

func TestThresholdAndSymmetry(t *testing.T) {
	const n, thresh = 15, 12.
	tracks := randomTracks(n, 7)
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprint("obj", i)
	}
	reversed := make([]string, n)
	for i, nm := range names {
		reversed[n-1-i] = nm
	}
	fwd := build(t, &fakeProp{tracks: tracks}, recs(names...), thresh)
	rev := build(t, &fakeProp{tracks: tracks}, recs(reversed...), thresh)
	assert.Equal(t, fwd.NumEdges(), rev.NumEdges())
	edges := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			a, b := names[i], names[j]
			want, found := bruteMin(tracks[a], tracks[b])
			e, ok := fwd.Edge(a, b)
			if !found || want >= thresh {
				assert.False(t, ok, "%s %s", a, b)
				continue
			}
			require.True(t, ok, "%s %s", a, b)
			assert.InDelta(t, want, e.MinDistanceKm, 1e-9)
			assert.Less(t, e.MinDistanceKm, thresh)
			er, ok := rev.Edge(b, a)
			require.True(t, ok)
			assert.Equal(t, e.MinDistanceKm, er.MinDistanceKm)
			if i < j {
				edges++
			}
		}
	}
	assert.Equal(t, edges, fwd.NumEdges())
	assert.NotZero(t, edges)
	seen := map[conjunct.Pair]bool{}
	for _, e := range fwd.Edges() {
		assert.Less(t, e.U, e.V)
		assert.False(t, seen[e.Pair()])
		seen[e.Pair()] = true
	}
}

func TestDeterminism(t *testing.T) {
	tracks := randomTracks(20, 7)
	var names []string
	for i := 0; i < 20; i++ {
		names = append(names, fmt.Sprint("obj", i))
	}
	opts := conjunct.Options{HorizonMinutes: 60, StepMinutes: 10, CloseThresholdKm: 15}
	run := func(workers int) *conjunct.Graph {
		b := conjunct.NewBuilder(&fakeProp{tracks: tracks}, nil)
		b.Workers = workers
		g, err := b.Run(context.Background(), recs(names...), opts, base)
		require.NoError(t, err)
		return g
	}
	g1, g2, g3 := run(0), run(0), run(1)
	assert.Equal(t, g1.Nodes(), g2.Nodes())
	assert.Equal(t, g1.Edges(), g2.Edges())
	assert.Equal(t, g1.Edges(), g3.Edges())
	assert.Equal(t, conjunct.Summarize(g1, 0), conjunct.Summarize(g2, 0))
}

func TestRunRejectsOptions(t *testing.T) {
	for _, o := range []conjunct.Options{
		{HorizonMinutes: 0, StepMinutes: 10, CloseThresholdKm: 10},
		{HorizonMinutes: 60, StepMinutes: 0, CloseThresholdKm: 10},
		{HorizonMinutes: 60, StepMinutes: 70, CloseThresholdKm: 10},
		{HorizonMinutes: 60, StepMinutes: 10, CloseThresholdKm: 0},
		{HorizonMinutes: 60, StepMinutes: 10, CloseThresholdKm: -1},
		{HorizonMinutes: 60, StepMinutes: 10, CloseThresholdKm: math.NaN()},
		{HorizonMinutes: 60, StepMinutes: 10, CloseThresholdKm: 10, MaxObjects: -1},
	} {
		p := &fakeProp{tracks: map[string]track{"A": offset(coord.Cart{})}}
		_, err := conjunct.NewBuilder(p, nil).Run(context.Background(), recs("A"), o, base)
		assert.ErrorIs(t, err, conjunct.ErrInvalidOptions, "%+v", o)
		assert.Zero(t, p.prepared.Load())
	}
}

func TestRunCapsObjects(t *testing.T) {
	p := &fakeProp{tracks: map[string]track{
		"A": offset(coord.Cart{}),
		"B": offset(coord.Cart{Y: 1}),
		"C": offset(coord.Cart{Y: 2}),
	}}
	opts := conjunct.Options{HorizonMinutes: 60, StepMinutes: 10, CloseThresholdKm: 10, MaxObjects: 2}
	g, err := conjunct.NewBuilder(p, nil).Run(context.Background(), recs("A", "B", "C"), opts, base)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumNodes())
	assert.True(t, g.Scored())
	assert.Equal(t, 7, len(g.Grid()))
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProp{tracks: map[string]track{"A": offset(coord.Cart{})}}
	_, err := conjunct.NewBuilder(p, nil).Build(ctx, recs("A"), grid(t, 60, 10), 10)
	assert.ErrorIs(t, err, context.Canceled)
}
