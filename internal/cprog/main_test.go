// Public domain.

package cprog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/conjunct/internal/config"
	"github.com/soniakeys/conjunct/internal/conjunct"
	"github.com/soniakeys/conjunct/internal/samples"
)

var summary = conjunct.Summary{
	RunID:    "r1",
	NumNodes: 3,
	NumEdges: 1,
	Nodes:    []string{"A", "B", "C"},
	Edges: []conjunct.EdgeInfo{{
		U:               "A",
		V:               "B",
		MinDistanceKm:   5,
		RiskScore:       .95,
		ClosestApproach: time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC),
		Explanation:     "Satellites A and B: min distance ~ 5.0 km → risk score 0.95.",
	}},
}

func TestPrintText(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, printSummary(&b, summary, "text"))
	out := b.String()
	assert.Contains(t, out, "Nodes: 3\n")
	assert.Contains(t, out, "Edges (close approaches): 1\n")
	assert.Contains(t, out, " 1  A                  B                         5.00  0.950  2024-01-01 00:10:00\n")

	b.Reset()
	require.NoError(t, printSummary(&b, conjunct.Summary{NumNodes: 2, Edges: []conjunct.EdgeInfo{}}, "text"))
	assert.True(t, strings.HasSuffix(b.String(), "No close approaches under the chosen threshold.\n"))
}

func TestPrintJSONAndYAML(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, printSummary(&b, summary, "json"))
	var j map[string]any
	require.NoError(t, json.Unmarshal(b.Bytes(), &j))
	assert.Equal(t, "r1", j["run_id"])
	assert.Equal(t, .95, j["edges"].([]any)[0].(map[string]any)["risk_score"])

	b.Reset()
	require.NoError(t, printSummary(&b, summary, "yaml"))
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(b.Bytes(), &y))
	assert.Equal(t, 3, y["num_nodes"])
	assert.Equal(t, .95, y["edges"].([]any)[0].(map[string]any)["risk_score"])
}

func TestApplyFlags(t *testing.T) {
	cl := &commandLine{
		minutes:   30,
		threshold: 25,
		neo4j:     "bolt://x:7687",
		set:       map[string]bool{"minutes": true, "threshold": true, "neo4j": true},
	}
	cfg := config.Default()
	cl.apply(&cfg)
	assert.Equal(t, 30, cfg.HorizonMinutes)
	assert.Equal(t, 10, cfg.StepMinutes)
	assert.Equal(t, 25., cfg.CloseThresholdKm)
	assert.Equal(t, "bolt://x:7687", cfg.Store.URI)
	assert.Equal(t, 60, cfg.MaxObjects)
}

func TestBaseTime(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 987654321, time.UTC)
	b, err := baseTime("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), b)

	b, err = baseTime("2024-01-01T00:00:30.5Z", now)
	require.NoError(t, err)
	assert.True(t, b.Equal(time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC)), b)

	_, err = baseTime("yesterday", now)
	assert.Error(t, err)
}

func TestReadConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "conjunct.toml")
	require.NoError(t, os.WriteFile(fn, []byte("horizon_minutes = 30\nsource = \"stations\"\n"), 0o644))
	env := map[string]string{"CONJUNCT_STEP_MINUTES": "5", "CONJUNCT_TOP_K": "3"}
	getenv := func(k string) string { return env[k] }

	cl := &commandLine{dc: fn, topk: 7, set: map[string]bool{"topk": true}}
	cfg, err := readConfig(cl, getenv)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.HorizonMinutes) // file
	assert.Equal(t, 5, cfg.StepMinutes)     // environment
	assert.Equal(t, 7, cfg.TopK)            // flag over environment
	assert.Equal(t, "stations", cfg.Source)
	assert.Equal(t, 10., cfg.CloseThresholdKm)

	cl = &commandLine{dc: fn, step: 40, set: map[string]bool{"step": true}}
	_, err = readConfig(cl, getenv)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = readConfig(&commandLine{dc: fn + ".missing"}, getenv)
	assert.Error(t, err)
}

func TestReadRecords(t *testing.T) {
	ctx := context.Background()
	want := samples.Records()
	require.NotEmpty(t, want)

	fn := filepath.Join(t.TempDir(), "set.txt")
	require.NoError(t, os.WriteFile(fn, []byte(samples.Text), 0o644))
	got, err := readRecords(ctx, &commandLine{fn: fn}, config.Default())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = readRecords(ctx, &commandLine{demo: true}, config.Default())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/set.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(samples.Text))
	}))
	defer src.Close()

	// no file argument falls back to the configured source
	cfg := config.Default()
	cfg.Source = src.URL + "/set.txt"
	got, err = readRecords(ctx, &commandLine{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// -source wins over the configured one
	_, err = readRecords(ctx, &commandLine{source: src.URL + "/other.txt"}, cfg)
	assert.Error(t, err)

	cfg.Source = "nowhere"
	_, err = readRecords(ctx, &commandLine{}, cfg)
	assert.Error(t, err)
}
