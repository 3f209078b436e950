// Package rejection implements approximate inference by rejection sampling.
//
// Every draw is a full ancestral sample of the network; samples that
// disagree with the evidence are discarded. The acceptance rate falls off
// exponentially as evidence grows or becomes unlikely, which is inherent to
// the method.
package rejection

import (
	"context"
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/sampling"
)

// DefaultSamples matches the command loop's historical sample count.
const DefaultSamples = 100000

// checkEvery is how many draws pass between cancellation checks.
const checkEvery = 1024

// Config controls the sampler
type Config struct {
	Samples int    // number of full samples to draw
	Seed    uint64 // used when a query carries no Rand; 0 = nondeterministic
}

// Sampler performs rejection sampling
type Sampler struct {
	cfg Config
}

// New creates a rejection sampler. Non-positive sample counts fall back to
// DefaultSamples.
func New(cfg Config) *Sampler {
	if cfg.Samples <= 0 {
		cfg.Samples = DefaultSamples
	}
	return &Sampler{cfg: cfg}
}

// Method implements inference.Engine.
func (s *Sampler) Method() inference.Method { return inference.MethodRejection }

// Infer implements inference.Engine.
func (s *Sampler) Infer(ctx context.Context, net *network.Network, q inference.Query) (inference.Distribution, error) {
	qv, evidence, err := inference.Prepare(net, q)
	if err != nil {
		return inference.Distribution{}, err
	}

	rng := q.Rand
	if rng == nil {
		rng = sampling.NewRand(s.cfg.Seed)
	}

	counts := make([]float64, net.DomainSize(qv))
	accepted := 0
	sample := make([]int, net.Len())

	for i := 0; i < s.cfg.Samples; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return inference.Distribution{}, err
			}
		}

		// Declaration order is topological, so parents are always drawn first.
		for v := range sample {
			sample[v] = sampling.Categorical(rng, net.Row(v, sample))
		}

		if consistent(sample, evidence) {
			accepted++
			counts[sample[qv]]++
		}
	}

	dist, ok := inference.NewDistribution(net, qv, counts)
	if !ok {
		return inference.Distribution{}, fmt.Errorf("%w: 0 of %d samples matched the evidence",
			internalerr.ErrNoAcceptedSamples, s.cfg.Samples)
	}
	dist.Stats = inference.Stats{Samples: s.cfg.Samples, Accepted: accepted}
	return dist, nil
}

func consistent(sample, evidence []int) bool {
	for v, val := range evidence {
		if val != network.Unassigned && sample[v] != val {
			return false
		}
	}
	return true
}
