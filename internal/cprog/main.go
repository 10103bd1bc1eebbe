// Public domain.

// Package cprog is the body of the conjunct command.
package cprog

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/exit"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/conjunct/internal/config"
	"github.com/soniakeys/conjunct/internal/conjunct"
	"github.com/soniakeys/conjunct/internal/graphstore"
	"github.com/soniakeys/conjunct/internal/samples"
	"github.com/soniakeys/conjunct/internal/sgp4"
	"github.com/soniakeys/conjunct/internal/tle"
)

const versionString = "conjunct version 0.1 Go source."
const copyrightString = "Public domain."

func Main() {
	defer exit.Handler()

	cl := parseCommandLine()
	cfg, err := readConfig(cl, os.Getenv)
	if err != nil {
		exit.Log(err)
	}
	log := newLogger(cfg.Log.Debug)
	defer log.Sync()

	runID := uuid.NewString()
	log = log.With(zap.String("run", runID))
	ctx := context.Background()

	recs, err := readRecords(ctx, cl, cfg)
	if err != nil {
		exit.Log(err)
	}
	if len(recs) == 0 {
		// not an error; an empty graph is reported as such.
		log.Warn("no element sets parsed", zap.String("input", cl.input(cfg)))
	}

	b := conjunct.NewBuilder(sgp4.Propagator{}, log)
	b.Workers = cfg.Workers
	g, err := b.Run(ctx, recs, cfg.Options(), cl.base)
	if err != nil {
		exit.Log(err)
	}

	if cfg.Store.URI != "" {
		st, err := graphstore.Open(ctx, cfg.Store, log)
		if err != nil {
			exit.Log(err)
		}
		defer st.Close(ctx)
		if err := st.Save(ctx, runID, g); err != nil {
			exit.Log(err)
		}
	}

	s := conjunct.Summarize(g, cfg.TopK)
	s.RunID = runID
	if err := printSummary(os.Stdout, s, cl.format); err != nil {
		exit.Log(err)
	}
}

type commandLine struct {
	dc     string // config file
	fn     string // element set file, "-" for stdin
	source string // Celestrak group or URL
	demo   bool
	format string // text, json, yaml
	base   time.Time
	set    map[string]bool // flags given explicitly

	minutes, step, max, topk, workers int
	threshold                         float64
	neo4j                             string
	debug                             bool
}

func (cl *commandLine) input(cfg config.Config) string {
	switch {
	case cl.demo:
		return "bundled sample set"
	case cl.source != "":
		return cl.source
	case cl.fn == "":
		return cfg.Source
	case cl.fn == "-":
		return "input stream"
	}
	return cl.fn
}

func parseCommandLine() *commandLine {
	var cl commandLine
	def := config.Default()
	dh := flag.Bool("h", false, "")
	dv := flag.Bool("v", false, "")
	js := flag.Bool("json", false, "")
	ym := flag.Bool("yaml", false, "")
	at := flag.String("at", "", "")
	flag.StringVar(&cl.dc, "c", "", "")
	flag.StringVar(&cl.source, "source", "", "")
	flag.BoolVar(&cl.demo, "demo", false, "")
	flag.IntVar(&cl.minutes, "minutes", def.HorizonMinutes, "")
	flag.IntVar(&cl.step, "step", def.StepMinutes, "")
	flag.Float64Var(&cl.threshold, "threshold", def.CloseThresholdKm, "")
	flag.IntVar(&cl.max, "max", def.MaxObjects, "")
	flag.IntVar(&cl.topk, "topk", def.TopK, "")
	flag.IntVar(&cl.workers, "workers", def.Workers, "")
	flag.StringVar(&cl.neo4j, "neo4j", "", "")
	flag.BoolVar(&cl.debug, "debug", false, "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: conjunct [options] <tlefile>    find conjunctions among element sets in file
       conjunct [options] -            read element sets from stdin
       conjunct [options] -demo        use the bundled sample set
       conjunct [options] -source <s>  fetch a Celestrak group (active, stations) or URL
       conjunct [options]              fetch the configured source
       conjunct -h                     display help
       conjunct -v                     display version and copyright

Options:
       -c <config-file>
       -minutes <horizon>    -step <minutes>     -threshold <km>
       -max <objects>        -topk <n>           -workers <n>
       -at <RFC 3339 time>   -json               -yaml
       -neo4j <uri>          -debug
`)
	}
	flag.Parse()
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case *dv:
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	case flag.NArg() > 1,
		flag.NArg() == 1 && (cl.demo || cl.source != ""):
		flag.Usage()
		os.Exit(1)
	case flag.NArg() == 1:
		cl.fn = flag.Arg(0)
	}
	cl.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { cl.set[f.Name] = true })
	cl.format = "text"
	switch {
	case *js && *ym:
		exit.Log("-json and -yaml are exclusive.")
	case *js:
		cl.format = "json"
	case *ym:
		cl.format = "yaml"
	}
	var err error
	if cl.base, err = baseTime(*at, time.Now()); err != nil {
		exit.Log(err)
	}
	return &cl
}

// baseTime returns the grid base, the -at time if given, otherwise now.
// It is truncated to whole seconds, the resolution of the propagator.
func baseTime(at string, now time.Time) (time.Time, error) {
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("-at: %w", err)
		}
		now = t
	}
	return now.Truncate(time.Second), nil
}

// readConfig layers defaults, config file, environment, and flags given
// on the command line.
func readConfig(cl *commandLine, getenv func(string) string) (config.Config, error) {
	cfg := config.Default()
	if cl.dc != "" {
		var err error
		if cfg, err = config.Load(cl.dc); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	cl.apply(&cfg)
	return cfg, cfg.Validate()
}

func (cl *commandLine) apply(cfg *config.Config) {
	if cl.set["minutes"] {
		cfg.HorizonMinutes = cl.minutes
	}
	if cl.set["step"] {
		cfg.StepMinutes = cl.step
	}
	if cl.set["threshold"] {
		cfg.CloseThresholdKm = cl.threshold
	}
	if cl.set["max"] {
		cfg.MaxObjects = cl.max
	}
	if cl.set["topk"] {
		cfg.TopK = cl.topk
	}
	if cl.set["workers"] {
		cfg.Workers = cl.workers
	}
	if cl.set["neo4j"] {
		cfg.Store.URI = cl.neo4j
	}
	if cl.set["debug"] {
		cfg.Log.Debug = cl.debug
	}
}

// readRecords reads the input the command line names.  With no file
// argument the configured source is fetched.
func readRecords(ctx context.Context, cl *commandLine, cfg config.Config) ([]tle.Record, error) {
	switch {
	case cl.demo:
		return samples.Records(), nil
	case cl.fn == "-":
		return tle.Split(os.Stdin)
	case cl.fn != "":
		return tle.ReadFile(cl.fn)
	}
	src := cl.source
	if src == "" {
		src = cfg.Source
	}
	url, err := tle.ResolveSource(src)
	if err != nil {
		return nil, err
	}
	return tle.Fetch(ctx, nil, url)
}

func newLogger(debug bool) *zap.Logger {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		l, err = zc.Build()
	}
	if err != nil {
		exit.Log(err)
	}
	return l
}

func printSummary(w io.Writer, s conjunct.Summary, format string) error {
	switch format {
	case "json":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(s)
	case "yaml":
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(s); err != nil {
			return err
		}
		return e.Close()
	}
	fmt.Fprintln(w, "Nodes:", s.NumNodes)
	fmt.Fprintln(w, "Edges (close approaches):", s.NumEdges)
	if len(s.Edges) == 0 {
		fmt.Fprintln(w, "No close approaches under the chosen threshold.")
		return nil
	}
	fmt.Fprintln(w, "\nTop risky conjunctions:")
	fmt.Fprintf(w, "%2s  %-18s %-18s %11s %6s  %s\n",
		"#", "U", "V", "MinDist(km)", "Risk", "Closest sample (UTC)")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------")
	for i, e := range s.Edges {
		fmt.Fprintf(w, "%2d  %-18s %-18s %11.2f %6.3f  %s\n",
			i+1, e.U, e.V, e.MinDistanceKm, e.RiskScore,
			e.ClosestApproach.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printHelp() {
	fmt.Println(`
Conjunct propagates two-line element sets over a short horizon and reports
pairs of objects whose sampled separation falls below a threshold, with a
heuristic risk score for each pair.

Config file keys (TOML):
   horizon_minutes      step_minutes       close_threshold_km
   max_objects          top_k              workers
   source
   [server] addr
   [store]  uri user password database
   [log]    debug

Environment variables CONJUNCT_<KEY> override the config file,
for example CONJUNCT_CLOSE_THRESHOLD_KM or CONJUNCT_NEO4J_URI.
Command line options override both.

For full documentation:
   go doc github.com/soniakeys/conjunct`)
}
