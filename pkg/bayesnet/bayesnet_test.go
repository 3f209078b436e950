package bayesnet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/config"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/metrics"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/memstore"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/sqlite"
)

const networks = "../../testdata/networks"

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Sampling.RejectionSamples = 20000
	cfg.Sampling.GibbsIterations = 20000
	cfg.Sampling.GibbsBurnIn = 500
	cfg.Sampling.Seed = 7
	return cfg
}

func newSession(t *testing.T, st store.Store, m *metrics.Metrics) *Session {
	t.Helper()
	s, err := New(Options{Store: st, Config: testConfig(), Metrics: m})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestQueryExact(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, nil, nil)

	_, err := s.Load(ctx, filepath.Join(networks, "twonode.bn"))
	require.NoError(t, err)

	r, err := s.Query(ctx, inference.MethodExact, "B")
	require.NoError(t, err)
	assert.Equal(t, "0.3100 0.6900", r.Line())
	assert.Equal(t, "twonode", r.Network)

	runs, err := s.History(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "exact", runs[0].Method)
	assert.Equal(t, r.ID, runs[0].ID)
	assert.Empty(t, runs[0].Error)
}

func TestQuerySamplersApproximateExact(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, nil, nil)
	_, err := s.Load(ctx, filepath.Join(networks, "twonode.bn"))
	require.NoError(t, err)

	// P(A=true | B=true) = 0.24 / 0.31
	want := 0.24 / 0.31
	for _, m := range []inference.Method{inference.MethodRejection, inference.MethodGibbs} {
		r, err := s.Query(ctx, m, "A | B=true")
		require.NoError(t, err, m)
		p, ok := r.Distribution.Prob("true")
		require.True(t, ok)
		assert.InDelta(t, want, p, 0.03, m)
		assert.InDelta(t, 1.0, r.Distribution.Sum(), 1e-9)
	}
}

func TestQueryFailuresAreRecorded(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, nil, nil)

	_, err := s.Query(ctx, inference.MethodExact, "B")
	assert.ErrorIs(t, err, internalerr.ErrNoNetwork)

	_, err = s.Load(ctx, filepath.Join(networks, "twonode.bn"))
	require.NoError(t, err)

	r, err := s.Query(ctx, inference.MethodExact, "B | A")
	assert.ErrorIs(t, err, internalerr.ErrInvalidQuery)
	assert.Equal(t, err, r.Err)

	_, err = s.Query(ctx, inference.MethodGibbs, "Z")
	assert.ErrorIs(t, err, internalerr.ErrUnknownVariable)

	runs, err := s.History(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, run := range runs {
		assert.NotEmpty(t, run.Error)
		assert.Empty(t, run.Probs)
	}

	runs, err = s.History(ctx, "twonode", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestUseSwitchesNetwork(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, memstore.New(), nil)

	_, err := s.Load(ctx, filepath.Join(networks, "twonode.bn"))
	require.NoError(t, err)
	_, err = s.Load(ctx, filepath.Join(networks, "weather.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "weather", s.Current().Name)

	recs, err := s.Networks(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "twonode", recs[0].Name)
	assert.Equal(t, "weather", recs[1].Name)
	assert.Equal(t, 2, recs[1].Variables)

	def, err := s.Use(ctx, "twonode")
	require.NoError(t, err)
	assert.Equal(t, "twonode", def.Name)
	assert.Equal(t, "twonode", s.Current().Name)

	_, err = s.Use(ctx, "alarm")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	assert.Equal(t, "twonode", s.Current().Name)
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, nil, nil)
	_, err := s.Load(ctx, filepath.Join(networks, "sprinkler.bn"))
	require.NoError(t, err)

	cmp, err := s.Compare(ctx, "Rain | WetGrass=true")
	require.NoError(t, err)
	require.Len(t, cmp.Reports, 3)

	for i, m := range inference.Methods() {
		assert.Equal(t, m, cmp.Reports[i].Method)
		assert.NoError(t, cmp.Reports[i].Err)
	}
	p, _ := cmp.Reports[0].Distribution.Prob("true")
	assert.InDelta(t, 0.70793, p, 1e-4)

	require.Len(t, cmp.Deviation, 2)
	assert.Less(t, cmp.Deviation[inference.MethodRejection], 0.05)
	assert.Less(t, cmp.Deviation[inference.MethodGibbs], 0.05)

	runs, err := s.History(ctx, "sprinkler", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestCompareFailsWhenEvidenceImpossible(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, nil, nil)

	path := filepath.Join(t.TempDir(), "certain.bn")
	src := "2\nA true false\nB true false\n2\nA\n0.0 1.0\nB A\n0.8 0.2\n0.1 0.9\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	_, err := s.Load(ctx, path)
	require.NoError(t, err)

	_, err = s.Compare(ctx, "B | A=true")
	assert.ErrorIs(t, err, internalerr.ErrZeroLikelihood)

	runs, err := s.History(ctx, "certain", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestCompareWithoutNetwork(t *testing.T) {
	s := newSession(t, nil, nil)
	_, err := s.Compare(context.Background(), "A")
	assert.ErrorIs(t, err, internalerr.ErrNoNetwork)
}

func TestMetricsObserved(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	s := newSession(t, nil, m)
	_, err := s.Load(ctx, filepath.Join(networks, "twonode.bn"))
	require.NoError(t, err)

	_, err = s.Query(ctx, inference.MethodExact, "B")
	require.NoError(t, err)
	_, err = s.Query(ctx, inference.MethodRejection, "A | B=true")
	require.NoError(t, err)
	_, err = s.Query(ctx, inference.MethodExact, "Z")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("exact", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("rejection", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("exact", "invalid_query")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AcceptanceRatio))
}

func TestCancelledQuery(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, nil, nil)
	_, err := s.Load(ctx, filepath.Join(networks, "sprinkler.bn"))
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Query(cancelled, inference.MethodRejection, "Rain | WetGrass=true")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Sampling.GibbsBurnIn = cfg.Sampling.GibbsIterations
	_, err := New(Options{Config: cfg})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestSQLiteSessionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bayes.db")

	st, err := sqlite.OpenSQLite(ctx, path)
	require.NoError(t, err)
	s, err := New(Options{Store: st, Config: testConfig()})
	require.NoError(t, err)

	_, err = s.Load(ctx, filepath.Join(networks, "weather.yaml"))
	require.NoError(t, err)
	_, err = s.Query(ctx, inference.MethodExact, "Sky | Umbrella=yes")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	st, err = sqlite.OpenSQLite(ctx, path)
	require.NoError(t, err)
	s = newSession(t, st, nil)

	def, err := s.Use(ctx, "weather")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sky", "Umbrella"}, def.Network.Names())

	runs, err := s.History(ctx, "weather", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"sunny", "cloudy", "rainy"}, runs[0].Values)
}
