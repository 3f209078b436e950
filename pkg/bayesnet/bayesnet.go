// Package bayesnet ties the network loader, the inference engines and the
// run history together behind a Session.
package bayesnet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/bayesnet/internal/logging"
	"github.com/cognicore/bayesnet/pkg/bayesnet/config"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/enumeration"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/gibbs"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/rejection"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/loader"
	"github.com/cognicore/bayesnet/pkg/bayesnet/metrics"
	"github.com/cognicore/bayesnet/pkg/bayesnet/query"
	"github.com/cognicore/bayesnet/pkg/bayesnet/report"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/memstore"
)

// Session is the main inference facade. It holds the active network and
// records every query it runs.
type Session struct {
	store   store.Store
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	reports *report.Builder
	engines map[inference.Method]inference.Engine

	mu      sync.RWMutex
	current *loader.Definition
}

// Options configures a Session
type Options struct {
	Store   store.Store        // defaults to an in-memory store
	Config  config.Config      // sampler budgets and seed
	Logger  logrus.FieldLogger // defaults to a discarding logger
	Metrics *metrics.Metrics   // optional
}

// New creates a Session with the given dependencies
func New(opts Options) (*Session, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	g, err := gibbs.New(opts.Config.Gibbs())
	if err != nil {
		return nil, err
	}

	s := &Session{
		store:   opts.Store,
		log:     opts.Logger,
		metrics: opts.Metrics,
		reports: report.New(),
		engines: map[inference.Method]inference.Engine{
			inference.MethodExact:     enumeration.New(),
			inference.MethodRejection: rejection.New(opts.Config.Rejection()),
			inference.MethodGibbs:     g,
		},
	}
	if s.store == nil {
		s.store = memstore.New()
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s, nil
}

// Close cleanly shuts down the Session
func (s *Session) Close() error {
	return s.store.Close()
}

// Current returns the active network definition, or nil before any load.
func (s *Session) Current() *loader.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Load parses a network file, stores it and makes it the active network.
func (s *Session) Load(ctx context.Context, path string) (*loader.Definition, error) {
	def, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Add(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// Add stores an already parsed definition and makes it the active network.
func (s *Session) Add(ctx context.Context, def *loader.Definition) error {
	rec := store.NetworkRecord{
		Name:      def.Name,
		Format:    string(def.Format),
		Source:    def.Source,
		Variables: def.Network.Len(),
		LoadedAt:  time.Now().UTC(),
	}
	if err := s.store.UpsertNetwork(ctx, rec); err != nil {
		return fmt.Errorf("store network %q: %w", def.Name, err)
	}

	s.mu.Lock()
	s.current = def
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"network":   def.Name,
		"format":    def.Format,
		"variables": def.Network.Len(),
	}).Info("network loaded")
	return nil
}

// Use switches the active network to one stored earlier.
func (s *Session) Use(ctx context.Context, name string) (*loader.Definition, error) {
	rec, found, err := s.store.GetNetwork(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: network %q", internalerr.ErrNotFound, name)
	}

	def, err := loader.FromSource(rec.Name, loader.Format(rec.Format), rec.Source)
	if err != nil {
		return nil, fmt.Errorf("stored network %q: %w", name, err)
	}

	s.mu.Lock()
	s.current = def
	s.mu.Unlock()

	s.log.WithField("network", name).Info("network selected")
	return def, nil
}

// Networks lists every stored network.
func (s *Session) Networks(ctx context.Context) ([]store.NetworkRecord, error) {
	return s.store.ListNetworks(ctx)
}

// History returns recent runs, newest first. An empty network name returns
// runs for every network.
func (s *Session) History(ctx context.Context, network string, limit int) ([]store.Run, error) {
	return s.store.ListRuns(ctx, network, limit)
}

// Query parses text and runs it with the given method against the active
// network. The returned report carries the same error as the second return
// value; failed runs are recorded too.
func (s *Session) Query(ctx context.Context, method inference.Method, text string) (report.Report, error) {
	def := s.Current()
	q, err := query.Parse(text)
	if err == nil && def == nil {
		err = internalerr.ErrNoNetwork
	}
	if err != nil {
		s.metrics.ObserveQuery(string(method), outcome(err), 0)
		r := s.reports.Build(networkName(def), method, text, inference.Distribution{}, 0, err)
		return r, s.finish(ctx, r)
	}
	r := s.run(ctx, method, def, q)
	return r, s.finish(ctx, r)
}

// Comparison is the outcome of running every method on one query
type Comparison struct {
	Reports []report.Report // in inference.Methods() order

	// Max absolute difference between each sampler and the exact answer.
	// Only samplers that succeeded are present.
	Deviation map[inference.Method]float64
}

// Compare runs the exact engine and both samplers concurrently on the same
// query. A failure of the exact engine fails the comparison and cancels the
// samplers; sampler failures are kept in their reports.
func (s *Session) Compare(ctx context.Context, text string) (Comparison, error) {
	def := s.Current()
	if def == nil {
		return Comparison{}, internalerr.ErrNoNetwork
	}
	q, err := query.Parse(text)
	if err != nil {
		return Comparison{}, err
	}

	methods := inference.Methods()
	reports := make([]report.Report, len(methods))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range methods {
		g.Go(func() error {
			reports[i] = s.run(gctx, m, def, q)
			if m == inference.MethodExact {
				return reports[i].Err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	for _, r := range reports {
		if err := s.record(ctx, r); err != nil {
			return Comparison{}, err
		}
	}
	if waitErr != nil {
		return Comparison{}, waitErr
	}

	cmp := Comparison{Reports: reports, Deviation: make(map[inference.Method]float64)}
	exact := reports[0].Distribution
	for _, r := range reports[1:] {
		if r.Err == nil {
			cmp.Deviation[r.Method] = maxDeviation(exact.Probs, r.Distribution.Probs)
		}
	}
	return cmp, nil
}

// run executes one engine call and observes it; it does not touch the store.
func (s *Session) run(ctx context.Context, method inference.Method, def *loader.Definition, q inference.Query) report.Report {
	text := query.String(q)
	engine, ok := s.engines[method]
	if !ok {
		err := fmt.Errorf("%w: unknown method %q", internalerr.ErrInvalidQuery, method)
		return s.reports.Build(def.Name, method, text, inference.Distribution{}, 0, err)
	}

	start := time.Now()
	dist, err := engine.Infer(ctx, def.Network, q)
	elapsed := time.Since(start)

	s.metrics.ObserveQuery(string(method), outcome(err), elapsed)
	if err == nil && method == inference.MethodRejection && dist.Stats.Samples > 0 {
		s.metrics.ObserveAcceptance(float64(dist.Stats.Accepted) / float64(dist.Stats.Samples))
	}

	return s.reports.Build(def.Name, method, text, dist, elapsed, err)
}

// finish records r and logs it, returning the report's own error unless
// recording failed.
func (s *Session) finish(ctx context.Context, r report.Report) error {
	if err := s.record(ctx, r); err != nil {
		return err
	}
	return r.Err
}

func (s *Session) record(ctx context.Context, r report.Report) error {
	entry := s.log.WithFields(logrus.Fields{
		"method":   r.Method,
		"network":  r.Network,
		"query":    r.Query,
		"elapsed":  r.Elapsed,
		"accepted": r.Distribution.Stats.Accepted,
	})
	if r.Err != nil {
		entry.WithError(r.Err).Warn("query failed")
	} else {
		entry.Debug("query")
	}

	if err := s.store.InsertRun(ctx, r.Run()); err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

func networkName(def *loader.Definition) string {
	if def == nil {
		return ""
	}
	return def.Name
}

// outcome labels an error for the queries counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, internalerr.ErrZeroLikelihood):
		return "zero_likelihood"
	case errors.Is(err, internalerr.ErrNoAcceptedSamples):
		return "no_accepted_samples"
	case errors.Is(err, internalerr.ErrUnknownVariable), errors.Is(err, internalerr.ErrUnknownValue),
		errors.Is(err, internalerr.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

func maxDeviation(a, b []float64) float64 {
	worst := 0.0
	for i := range a {
		if i >= len(b) {
			break
		}
		if d := math.Abs(a[i] - b[i]); d > worst {
			worst = d
		}
	}
	return worst
}
