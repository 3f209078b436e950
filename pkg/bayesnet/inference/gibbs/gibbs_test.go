package gibbs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/enumeration"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network/nettest"
)

func mustSampler(t *testing.T, cfg Config) *Sampler {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestConvergesToExact(t *testing.T) {
	ctx := context.Background()
	s := mustSampler(t, Config{Iterations: 100000, BurnIn: 1000, Seed: 4})

	cases := []struct {
		net *network.Network
		q   inference.Query
	}{
		{nettest.Chain(), inference.Query{Variable: "C"}},
		{nettest.Chain(), inference.Query{Variable: "A", Evidence: map[string]string{"C": "true"}}},
		{nettest.Sprinkler(), inference.Query{Variable: "Rain", Evidence: map[string]string{"WetGrass": "true"}}},
		{nettest.Weather(), inference.Query{Variable: "Sky", Evidence: map[string]string{"Umbrella": "yes"}}},
	}

	for _, tc := range cases {
		exact, err := enumeration.New().Infer(ctx, tc.net, tc.q)
		require.NoError(t, err)

		approx, err := s.Infer(ctx, tc.net, tc.q)
		require.NoError(t, err)

		assert.Equal(t, exact.Values, approx.Values)
		for i := range exact.Probs {
			assert.InDelta(t, exact.Probs[i], approx.Probs[i], 0.02, "%s | %v", tc.q.Variable, tc.q.Evidence)
		}
	}
}

func TestStatsCountPostBurnIn(t *testing.T) {
	s := mustSampler(t, Config{Iterations: 2000, BurnIn: 500, Seed: 8})
	dist, err := s.Infer(context.Background(), nettest.TwoNode(), inference.Query{Variable: "B"})
	require.NoError(t, err)

	assert.Equal(t, inference.Stats{Samples: 2000, Accepted: 1500, BurnIn: 500}, dist.Stats)
	assert.InDelta(t, 1.0, dist.Sum(), 1e-9)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{Iterations: 100, BurnIn: 100})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = New(Config{Iterations: 0})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = New(Config{Iterations: 10, BurnIn: -1})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	assert.NoError(t, DefaultConfig().Validate())
}

func TestSeededRunsAreReproducible(t *testing.T) {
	ctx := context.Background()
	s := mustSampler(t, Config{Iterations: 3000, BurnIn: 100, Seed: 31})
	q := inference.Query{Variable: "Cloudy", Evidence: map[string]string{"WetGrass": "true"}}

	first, err := s.Infer(ctx, nettest.Sprinkler(), q)
	require.NoError(t, err)
	second, err := s.Infer(ctx, nettest.Sprinkler(), q)
	require.NoError(t, err)

	assert.Equal(t, first.Probs, second.Probs)
}

func TestBlanketWeights(t *testing.T) {
	net := nettest.Chain()
	state, err := net.Assign(map[string]string{"A": "true", "B": "true", "C": "false"})
	require.NoError(t, err)

	out := make([]float64, 2)
	blanketWeights(net, 1, state, out)

	// P(B | A=t, C=f) ∝ P(B | A=t) P(C=f | B)
	wantTrue := 0.7 * 0.1
	wantFalse := 0.3 * 0.75
	assert.InDelta(t, wantTrue/(wantTrue+wantFalse), out[0], 1e-12)
	assert.InDelta(t, wantFalse/(wantTrue+wantFalse), out[1], 1e-12)
	assert.Equal(t, 0, state[1], "state must be restored")
}

func TestBlanketWeightsZeroTotalIsUniform(t *testing.T) {
	b := network.NewBuilder()
	require.NoError(t, b.AddVariable("A", "t", "f"))
	require.NoError(t, b.AddVariable("B", "t", "f"))
	require.NoError(t, b.SetCPT("A", network.CPT{Rows: [][]float64{{1, 0}}}))
	require.NoError(t, b.SetCPT("B", network.CPT{Parents: []string{"A"}, Rows: [][]float64{{1, 0}, {0, 1}}}))
	net, err := b.Build()
	require.NoError(t, err)

	state, err := net.Assign(map[string]string{"A": "t", "B": "f"})
	require.NoError(t, err)

	out := make([]float64, 2)
	blanketWeights(net, 0, state, out)
	assert.Equal(t, []float64{0.5, 0.5}, out)
}

func TestEvidenceStaysFixed(t *testing.T) {
	s := mustSampler(t, Config{Iterations: 500, BurnIn: 10, Seed: 2})
	dist, err := s.Infer(context.Background(), nettest.Chain(), inference.Query{
		Variable: "B",
		Evidence: map[string]string{"A": "true", "C": "true"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.63/0.705, dist.Probs[0], 0.06)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := mustSampler(t, Config{Iterations: 10, BurnIn: 1})
	_, err := s.Infer(ctx, nettest.Chain(), inference.Query{Variable: "C"})
	assert.ErrorIs(t, err, context.Canceled)
}
