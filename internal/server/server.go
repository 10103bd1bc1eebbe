// Public domain.

// Package server serves conjunction runs over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/soniakeys/conjunct/internal/config"
	"github.com/soniakeys/conjunct/internal/conjunct"
	"github.com/soniakeys/conjunct/internal/samples"
	"github.com/soniakeys/conjunct/internal/tle"
)

// Fixed settings of the two run endpoints.  Only the horizon and, for
// pipeline runs, the source are taken from the request.
const (
	stepMinutes     = 10
	demoThresholdKm = 50
	liveThresholdKm = 20
	demoHorizon     = 60
)

// Saver receives finished graphs.  *graphstore.Store implements it.
type Saver interface {
	Save(ctx context.Context, runID string, g *conjunct.Graph) error
}

type Server struct {
	cfg    config.Config
	prop   conjunct.Propagator
	log    *zap.Logger
	client *http.Client
	store  Saver
	now    func() time.Time

	mu   sync.Mutex
	last *conjunct.Summary

	reg     *prometheus.Registry
	runs    *prometheus.CounterVec
	elapsed *prometheus.HistogramVec
	edges   prometheus.Gauge
}

type Option func(*Server)

// WithClient sets the client used to fetch element sets.
func WithClient(c *http.Client) Option { return func(s *Server) { s.client = c } }

// WithStore exports each finished graph to st.
func WithStore(st Saver) Option { return func(s *Server) { s.store = st } }

// WithClock sets the source of run base times.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New creates a Server.  A nil logger discards log output.
func New(cfg config.Config, p conjunct.Propagator, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		prop:   p,
		log:    log,
		client: http.DefaultClient,
		now:    time.Now,
		reg:    prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conjunct_runs_total",
			Help: "Conjunction runs by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		elapsed: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conjunct_run_seconds",
			Help:    "Time spent building and scoring graphs.",
			Buckets: prometheus.ExponentialBuckets(.001, 4, 10),
		}, []string{"endpoint"}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conjunct_last_edges",
			Help: "Edges in the most recent graph.",
		}),
	}
	s.reg.MustRegister(s.runs, s.elapsed, s.edges)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))
	r.GET("/run_demo", s.runDemo)
	r.GET("/run_pipeline", s.runPipeline)
	r.GET("/report", s.report)
	return r
}

// ListenAndServe serves Handler on the configured address until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	hs := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		sc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(sc)
	}()
	s.log.Info("listening", zap.String("addr", hs.Addr))
	if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func horizon(c *gin.Context, def int) (int, error) {
	return strconv.Atoi(c.DefaultQuery("sample_minutes", strconv.Itoa(def)))
}

func (s *Server) runDemo(c *gin.Context) {
	h, err := horizon(c, demoHorizon)
	if err != nil {
		s.runs.WithLabelValues("demo", "bad_request").Inc()
		fail(c, http.StatusBadRequest, err)
		return
	}
	opts := conjunct.Options{
		HorizonMinutes:   h,
		StepMinutes:      stepMinutes,
		CloseThresholdKm: demoThresholdKm,
	}
	s.run(c, "demo", samples.Records(), opts)
}

func (s *Server) runPipeline(c *gin.Context) {
	h, err := horizon(c, s.cfg.HorizonMinutes)
	if err != nil {
		s.runs.WithLabelValues("pipeline", "bad_request").Inc()
		fail(c, http.StatusBadRequest, err)
		return
	}
	url, err := tle.ResolveSource(c.DefaultQuery("source", s.cfg.Source))
	if err != nil {
		s.runs.WithLabelValues("pipeline", "bad_request").Inc()
		fail(c, http.StatusBadRequest, err)
		return
	}
	recs, err := tle.Fetch(c.Request.Context(), s.client, url)
	if err == nil && len(recs) == 0 {
		err = errors.New("no element sets parsed from " + url)
	}
	if err != nil {
		s.log.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		s.runs.WithLabelValues("pipeline", "fetch_error").Inc()
		fail(c, http.StatusBadGateway, err)
		return
	}
	opts := conjunct.Options{
		HorizonMinutes:   h,
		StepMinutes:      stepMinutes,
		CloseThresholdKm: liveThresholdKm,
		MaxObjects:       s.cfg.MaxObjects,
	}
	s.run(c, "pipeline", recs, opts)
}

func (s *Server) run(c *gin.Context, endpoint string, recs []tle.Record, opts conjunct.Options) {
	id := uuid.NewString()
	log := s.log.With(zap.String("run", id), zap.String("endpoint", endpoint))
	b := conjunct.NewBuilder(s.prop, log)
	b.Workers = s.cfg.Workers
	start := time.Now()
	// whole seconds, the resolution of the propagator
	g, err := b.Run(c.Request.Context(), recs, opts, s.now().Truncate(time.Second))
	s.elapsed.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, conjunct.ErrInvalidOptions):
		s.runs.WithLabelValues(endpoint, "bad_request").Inc()
		fail(c, http.StatusBadRequest, err)
		return
	case err != nil:
		s.runs.WithLabelValues(endpoint, "error").Inc()
		fail(c, http.StatusInternalServerError, err)
		return
	}
	s.runs.WithLabelValues(endpoint, "ok").Inc()
	s.edges.Set(float64(g.NumEdges()))
	if s.store != nil {
		if err := s.store.Save(c.Request.Context(), id, g); err != nil {
			log.Error("graph export failed", zap.Error(err))
		}
	}
	sum := conjunct.Summarize(g, 0)
	sum.RunID = id
	s.mu.Lock()
	s.last = &sum
	s.mu.Unlock()
	c.JSON(http.StatusOK, sum)
}

func (s *Server) report(c *gin.Context) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, last)
}
