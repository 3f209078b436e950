package inference

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Engine computes the posterior marginal of one variable given evidence.
// This interface allows swapping exact and approximate implementations.
type Engine interface {
	// Method identifies the algorithm
	Method() Method

	// Infer returns P(Query.Variable | Query.Evidence) in the variable's
	// declared domain order. The network is only read.
	Infer(ctx context.Context, net *network.Network, q Query) (Distribution, error)
}

// Method names an inference algorithm
type Method string

const (
	MethodExact     Method = "exact"     // xquery
	MethodRejection Method = "rejection" // rquery
	MethodGibbs     Method = "gibbs"     // gquery
)

// Methods lists every method in the order results are reported.
func Methods() []Method {
	return []Method{MethodExact, MethodRejection, MethodGibbs}
}

// ParseMethod accepts either a method name or its command verb.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "exact", "xquery", "x":
		return MethodExact, nil
	case "rejection", "rquery", "r":
		return MethodRejection, nil
	case "gibbs", "gquery", "g":
		return MethodGibbs, nil
	}
	return "", fmt.Errorf("%w: unknown method %q", internalerr.ErrInvalidQuery, s)
}

// Query is a single posterior request
type Query struct {
	Variable string
	Evidence map[string]string

	// Rand is the random source for sampling engines. When nil the engine
	// creates its own per call. Exact inference ignores it.
	Rand *rand.Rand
}

// Stats describes how a sampled distribution was obtained
type Stats struct {
	Samples  int // draws or iterations performed
	Accepted int // samples counted towards the estimate
	BurnIn   int // discarded Gibbs iterations
}

// Distribution is a normalized posterior over one variable
type Distribution struct {
	Variable string
	Values   []string
	Probs    []float64
	Stats    Stats
}

// Prob returns the probability of value.
func (d Distribution) Prob(value string) (float64, bool) {
	for i, v := range d.Values {
		if v == value {
			return d.Probs[i], true
		}
	}
	return 0, false
}

// Sum returns the total probability mass.
func (d Distribution) Sum() float64 {
	total := 0.0
	for _, p := range d.Probs {
		total += p
	}
	return total
}

// Format renders the probabilities with four decimals, space separated,
// in domain order.
func (d Distribution) Format() string {
	parts := make([]string, len(d.Probs))
	for i, p := range d.Probs {
		parts[i] = strconv.FormatFloat(p, 'f', 4, 64)
	}
	return strings.Join(parts, " ")
}

// Prepare validates q against net and returns the query variable index and
// the evidence encoded as a dense state.
func Prepare(net *network.Network, q Query) (int, []int, error) {
	if net == nil {
		return 0, nil, internalerr.ErrNoNetwork
	}
	qv, ok := net.Index(q.Variable)
	if !ok {
		return 0, nil, fmt.Errorf("%w: query variable %q", internalerr.ErrUnknownVariable, q.Variable)
	}
	if _, ok := q.Evidence[q.Variable]; ok {
		return 0, nil, fmt.Errorf("%w: query variable %q is also evidence", internalerr.ErrInvalidQuery, q.Variable)
	}
	state, err := net.Assign(q.Evidence)
	if err != nil {
		return 0, nil, fmt.Errorf("evidence: %w", err)
	}
	return qv, state, nil
}

// NewDistribution normalizes weights into a distribution over variable v.
// A zero total is returned as a nil distribution and ok=false so that each
// engine can report its own failure.
func NewDistribution(net *network.Network, v int, weights []float64) (Distribution, bool) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return Distribution{}, false
	}

	d := Distribution{
		Variable: net.Name(v),
		Values:   make([]string, len(weights)),
		Probs:    make([]float64, len(weights)),
	}
	for i, w := range weights {
		d.Values[i] = net.Value(v, i)
		d.Probs[i] = w / total
	}
	return d, true
}
