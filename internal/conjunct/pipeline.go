// Public domain.

package conjunct

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/soniakeys/conjunct/internal/epoch"
	"github.com/soniakeys/conjunct/internal/tle"
)

// ErrInvalidOptions is wrapped by errors from Options.Validate.
var ErrInvalidOptions = errors.New("invalid options")

// Options configures a pipeline run.
type Options struct {
	HorizonMinutes   int     `validate:"gt=0"`
	StepMinutes      int     `validate:"gt=0,ltefield=HorizonMinutes"`
	CloseThresholdKm float64 `validate:"gt=0"`
	// MaxObjects caps the records used, counted before parsing into
	// nodes.  Zero means no cap.
	MaxObjects int `validate:"gte=0"`
}

var validate = validator.New()

// Validate checks the run options.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// Run validates opts, builds the graph for recs sampled from base, and
// scores it.  Invalid options are rejected before any propagation.
// Problems with individual records or samples are not errors; they
// only shrink the graph.
func (b *Builder) Run(ctx context.Context, recs []tle.Record, opts Options, base time.Time) (*Graph, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	recs = tle.Cap(recs, opts.MaxObjects)
	grid, err := epoch.Grid(base, opts.HorizonMinutes, opts.StepMinutes)
	if err != nil {
		return nil, err
	}
	g, err := b.Build(ctx, recs, grid, opts.CloseThresholdKm)
	if err != nil {
		return nil, err
	}
	g, _ = Score(g)
	b.log.Info("conjunction run",
		zap.Int("records", len(recs)),
		zap.Int("nodes", g.NumNodes()),
		zap.Int("edges", g.NumEdges()),
		zap.Int("epochs", len(grid)),
		zap.Duration("elapsed", time.Since(start)))
	return g, nil
}

// EdgeInfo is an edge prepared for display, with names resolved and
// values rounded.
type EdgeInfo struct {
	U               string    `json:"u" yaml:"u"`
	V               string    `json:"v" yaml:"v"`
	MinDistanceKm   float64   `json:"min_distance_km" yaml:"min_distance_km"`
	RiskScore       float64   `json:"risk_score" yaml:"risk_score"`
	ClosestApproach time.Time `json:"closest_sample" yaml:"closest_sample"`
	Explanation     string    `json:"explanation" yaml:"explanation"`
}

// Summary is a graph prepared for display.
type Summary struct {
	RunID    string     `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	NumNodes int        `json:"num_nodes" yaml:"num_nodes"`
	NumEdges int        `json:"num_edges" yaml:"num_edges"`
	Nodes    []string   `json:"nodes" yaml:"nodes"`
	Edges    []EdgeInfo `json:"edges" yaml:"edges"`
}

// Summarize lists nodes in node order and the topK riskiest edges.
// topK <= 0 lists all edges.  Distances are rounded to 2 places, risk
// to 3.
func Summarize(g *Graph, topK int) Summary {
	s := Summary{
		NumNodes: g.NumNodes(),
		NumEdges: g.NumEdges(),
		Nodes:    make([]string, g.NumNodes()),
		Edges:    []EdgeInfo{},
	}
	for i, n := range g.nodes {
		s.Nodes[i] = n.Name
	}
	r := g.Ranked()
	if topK > 0 && len(r) > topK {
		r = r[:topK]
	}
	for _, e := range r {
		s.Edges = append(s.Edges, EdgeInfo{
			U:               g.nodes[e.U].Name,
			V:               g.nodes[e.V].Name,
			MinDistanceKm:   round(e.MinDistanceKm, 2),
			RiskScore:       round(e.Risk, 3),
			ClosestApproach: g.ClosestEpoch(e).Time(),
			Explanation:     Explain(g, e),
		})
	}
	return s
}

func round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
