// Package enumeration implements exact inference by recursive enumeration.
//
// The cost is exponential in the number of unobserved variables. Memoizing
// on the frontier (assigned variables that still have unvisited children)
// collapses repeated sub-sums on chain-like networks but leaves the worst
// case unchanged; this engine is the baseline the samplers are checked
// against, not a scalable algorithm.
package enumeration

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Engine performs exact inference
type Engine struct{}

// New creates an exact inference engine
func New() *Engine {
	return &Engine{}
}

// Method implements inference.Engine.
func (e *Engine) Method() inference.Method { return inference.MethodExact }

// Infer implements inference.Engine.
func (e *Engine) Infer(ctx context.Context, net *network.Network, q inference.Query) (inference.Distribution, error) {
	qv, state, err := inference.Prepare(net, q)
	if err != nil {
		return inference.Distribution{}, err
	}

	frontiers := frontierSets(net)
	weights := make([]float64, net.DomainSize(qv))
	for val := range weights {
		if err := ctx.Err(); err != nil {
			return inference.Distribution{}, err
		}
		state[qv] = val
		w := &walker{
			net:      net,
			frontier: frontiers,
			memo:     make(map[string]float64),
		}
		weights[val] = w.marginalize(0, state)
	}

	dist, ok := inference.NewDistribution(net, qv, weights)
	if !ok {
		return inference.Distribution{}, fmt.Errorf("%w: P(%s) = 0", internalerr.ErrZeroLikelihood, describe(q.Evidence))
	}
	return dist, nil
}

// frontierSets returns, for each position i in declaration order, the
// variables before i that are parents of some variable at or after i. The
// value of marginalize(i, state) depends only on those and on evidence.
func frontierSets(net *network.Network) [][]int {
	n := net.Len()
	lastChild := make([]int, n)
	for v := 0; v < n; v++ {
		lastChild[v] = -1
		for _, c := range net.Children(v) {
			if c > lastChild[v] {
				lastChild[v] = c
			}
		}
	}

	out := make([][]int, n+1)
	for i := 0; i <= n; i++ {
		for v := 0; v < i; v++ {
			if lastChild[v] >= i {
				out[i] = append(out[i], v)
			}
		}
	}
	return out
}

type walker struct {
	net      *network.Network
	frontier [][]int
	memo     map[string]float64
}

// marginalize sums the joint probability of every completion of state over
// the variables from position i onward. Variables already assigned in
// state are evidence (or the query candidate) and contribute their CPT
// entry; free variables are summed out and reset on return.
func (w *walker) marginalize(i int, state []int) float64 {
	if i == w.net.Len() {
		return 1.0
	}

	key := w.key(i, state)
	if p, ok := w.memo[key]; ok {
		return p
	}

	var result float64
	if val := state[i]; val != network.Unassigned {
		result = w.net.Prob(i, val, state) * w.marginalize(i+1, state)
	} else {
		row := w.net.Row(i, state)
		for y, p := range row {
			if p == 0 {
				continue
			}
			state[i] = y
			result += p * w.marginalize(i+1, state)
		}
		state[i] = network.Unassigned
	}

	w.memo[key] = result
	return result
}

func (w *walker) key(i int, state []int) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(i))
	for _, v := range w.frontier[i] {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(state[v]))
	}
	return sb.String()
}

func describe(evidence map[string]string) string {
	if len(evidence) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(evidence))
	for k, v := range evidence {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
