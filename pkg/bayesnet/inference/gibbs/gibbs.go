// Package gibbs implements approximate inference by single-site Gibbs
// sampling.
//
// Evidence variables stay fixed. Every other variable is resampled in
// declaration order from its distribution conditioned on its Markov
// blanket, and each update is visible to the variables that follow it in
// the same sweep.
package gibbs

import (
	"context"
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/sampling"
)

const (
	DefaultIterations = 100000
	DefaultBurnIn     = 1000
)

const checkEvery = 1024

// Config controls the sampler. BurnIn must be smaller than Iterations.
type Config struct {
	Iterations int
	BurnIn     int
	Seed       uint64 // used when a query carries no Rand; 0 = nondeterministic
}

// DefaultConfig returns the historical iteration and burn-in counts.
func DefaultConfig() Config {
	return Config{Iterations: DefaultIterations, BurnIn: DefaultBurnIn}
}

// Validate checks the iteration budget.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: gibbs iterations must be positive", internalerr.ErrInvalidConfig)
	}
	if c.BurnIn < 0 || c.BurnIn >= c.Iterations {
		return fmt.Errorf("%w: gibbs burn-in %d must be in [0, %d)", internalerr.ErrInvalidConfig, c.BurnIn, c.Iterations)
	}
	return nil
}

// Sampler performs Gibbs sampling
type Sampler struct {
	cfg Config
}

// New creates a Gibbs sampler.
func New(cfg Config) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{cfg: cfg}, nil
}

// Method implements inference.Engine.
func (s *Sampler) Method() inference.Method { return inference.MethodGibbs }

// Infer implements inference.Engine.
func (s *Sampler) Infer(ctx context.Context, net *network.Network, q inference.Query) (inference.Distribution, error) {
	qv, state, err := inference.Prepare(net, q)
	if err != nil {
		return inference.Distribution{}, err
	}

	rng := q.Rand
	if rng == nil {
		rng = sampling.NewRand(s.cfg.Seed)
	}

	var free []int
	for v, val := range state {
		if val == network.Unassigned {
			free = append(free, v)
			state[v] = rng.IntN(net.DomainSize(v))
		}
	}

	counts := make([]float64, net.DomainSize(qv))
	weights := make([][]float64, net.Len())
	for _, v := range free {
		weights[v] = make([]float64, net.DomainSize(v))
	}

	for i := 0; i < s.cfg.Iterations; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return inference.Distribution{}, err
			}
		}

		for _, v := range free {
			blanketWeights(net, v, state, weights[v])
			state[v] = sampling.Categorical(rng, weights[v])
		}

		if i >= s.cfg.BurnIn {
			counts[state[qv]]++
		}
	}

	dist, _ := inference.NewDistribution(net, qv, counts)
	dist.Stats = inference.Stats{
		Samples:  s.cfg.Iterations,
		Accepted: s.cfg.Iterations - s.cfg.BurnIn,
		BurnIn:   s.cfg.BurnIn,
	}
	return dist, nil
}

// blanketWeights fills out with P(v=x | Markov blanket of v) for each x:
// the CPT entry of v given its parents times, for every child c, the CPT
// entry of c's current value with v's slot set to x. A zero total becomes
// a uniform distribution. state[v] is restored before returning.
func blanketWeights(net *network.Network, v int, state []int, out []float64) {
	current := state[v]
	total := 0.0
	for x := range out {
		state[v] = x
		p := net.Prob(v, x, state)
		for _, c := range net.Children(v) {
			if p == 0 {
				break
			}
			p *= net.Prob(c, state[c], state)
		}
		out[x] = p
		total += p
	}
	state[v] = current

	if total == 0 {
		for x := range out {
			out[x] = 1 / float64(len(out))
		}
		return
	}
	for x := range out {
		out[x] /= total
	}
}
