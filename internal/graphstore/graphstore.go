// Public domain.

// Package graphstore exports conjunction graphs to a Neo4j or Memgraph
// database.
//
// Objects are merged as :SpaceObject nodes keyed by name.  Each run adds
// its own :CONJUNCTION relationships, tagged with the run id, so results
// of successive runs can be compared.
package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/soniakeys/conjunct/internal/config"
	"github.com/soniakeys/conjunct/internal/conjunct"
)

const (
	mergeNodes = `UNWIND $nodes AS n
MERGE (o:SpaceObject {name: n.name})
SET o.line1 = n.line1, o.line2 = n.line2, o.last_run = $run_id`

	mergeEdges = `UNWIND $edges AS e
MATCH (a:SpaceObject {name: e.u}), (b:SpaceObject {name: e.v})
MERGE (a)-[c:CONJUNCTION {run_id: $run_id}]->(b)
SET c.min_distance_km = e.min_distance_km,
    c.risk_score = e.risk_score,
    c.closest_sample = e.closest_sample`

	indexName = "CREATE INDEX ON :SpaceObject(name);"
)

type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *zap.Logger
}

// Open connects to the database at cfg.URI and checks connectivity.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, err
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		d.Close(ctx)
		return nil, fmt.Errorf("connect %s: %w", cfg.URI, err)
	}
	s := &Store{driver: d, database: cfg.Database, log: log}
	if _, err := s.exec(ctx, indexName, nil); err != nil {
		// Memgraph and Neo4j differ on index syntax; the index is only
		// an optimization.
		log.Debug("index not created", zap.Error(err))
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) exec(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if s.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(s.database))
	}
	r, err := neo4j.ExecuteQuery(ctx, s.driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return r, nil
}

// Save writes the nodes and edges of g under runID.
func (s *Store) Save(ctx context.Context, runID string, g *conjunct.Graph) error {
	p := Params(runID, g)
	if _, err := s.exec(ctx, mergeNodes, p); err != nil {
		return err
	}
	if _, err := s.exec(ctx, mergeEdges, p); err != nil {
		return err
	}
	s.log.Info("graph saved",
		zap.String("run", runID),
		zap.Int("nodes", g.NumNodes()),
		zap.Int("edges", g.NumEdges()))
	return nil
}

// Params returns the query parameters for saving g.
func Params(runID string, g *conjunct.Graph) map[string]any {
	nodes := make([]map[string]any, 0, g.NumNodes())
	for _, n := range g.Nodes() {
		nodes = append(nodes, map[string]any{
			"name":  n.Name,
			"line1": n.Record.Line1,
			"line2": n.Record.Line2,
		})
	}
	edges := make([]map[string]any, 0, g.NumEdges())
	for _, e := range g.Edges() {
		edges = append(edges, map[string]any{
			"u":               g.Node(e.U).Name,
			"v":               g.Node(e.V).Name,
			"min_distance_km": e.MinDistanceKm,
			"risk_score":      e.Risk,
			"closest_sample":  g.ClosestEpoch(e).Time(),
		})
	}
	return map[string]any{
		"run_id": runID,
		"nodes":  nodes,
		"edges":  edges,
	}
}
