package network

import (
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Variable is a named discrete variable. The order of Values fixes both the
// CPT column order and the order of every distribution reported for it.
type Variable struct {
	Name   string
	Values []string
}

// Network is an immutable discrete Bayesian network. Variables are stored in
// declaration order, which Build guarantees is a topological order.
//
// A Network is safe for concurrent use by any number of inference calls.
type Network struct {
	vars     []Variable
	index    map[string]int
	valueIdx []map[string]int
	parents  [][]int
	children [][]int
	strides  [][]int
	rows     [][][]float64 // variable → parent combination → value
}

// Len returns the number of variables.
func (n *Network) Len() int { return len(n.vars) }

// Variables returns the variables in declaration order.
func (n *Network) Variables() []Variable {
	out := make([]Variable, len(n.vars))
	for i, v := range n.vars {
		out[i] = Variable{Name: v.Name, Values: append([]string(nil), v.Values...)}
	}
	return out
}

// Names returns variable names in declaration order.
func (n *Network) Names() []string {
	out := make([]string, len(n.vars))
	for i, v := range n.vars {
		out[i] = v.Name
	}
	return out
}

// Index returns the declaration index of a variable.
func (n *Network) Index(name string) (int, bool) {
	i, ok := n.index[name]
	return i, ok
}

func (n *Network) lookup(name string) (int, error) {
	i, ok := n.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", internalerr.ErrUnknownVariable, name)
	}
	return i, nil
}

// ParentsOf returns the ordered parent names of a variable.
func (n *Network) ParentsOf(name string) ([]string, error) {
	i, err := n.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(n.parents[i]))
	for j, p := range n.parents[i] {
		out[j] = n.vars[p].Name
	}
	return out, nil
}

// ChildrenOf returns the names of variables that list name as a parent,
// in declaration order.
func (n *Network) ChildrenOf(name string) ([]string, error) {
	i, err := n.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(n.children[i]))
	for j, c := range n.children[i] {
		out[j] = n.vars[c].Name
	}
	return out, nil
}

// DomainOf returns the ordered domain of a variable.
func (n *Network) DomainOf(name string) ([]string, error) {
	i, err := n.lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), n.vars[i].Values...), nil
}

// Probability returns P(name=value | parents(name)=parentValues), with
// parentValues given in parent declaration order.
func (n *Network) Probability(name, value string, parentValues []string) (float64, error) {
	v, err := n.lookup(name)
	if err != nil {
		return 0, err
	}
	val, ok := n.valueIdx[v][value]
	if !ok {
		return 0, fmt.Errorf("%w: %q for variable %q", internalerr.ErrUnknownValue, value, name)
	}
	if len(parentValues) != len(n.parents[v]) {
		return 0, fmt.Errorf("%w: %q expects %d parent values, got %d",
			internalerr.ErrMissingCPTEntry, name, len(n.parents[v]), len(parentValues))
	}

	row := 0
	for j, p := range n.parents[v] {
		pv, ok := n.valueIdx[p][parentValues[j]]
		if !ok {
			return 0, fmt.Errorf("%w: %q has no row for %v", internalerr.ErrMissingCPTEntry, name, parentValues)
		}
		row += pv * n.strides[v][j]
	}
	return n.rows[v][row][val], nil
}

// ParentCombinations lists every parent assignment of a variable in CPT row
// order: Cartesian product of parent domains, rightmost parent fastest.
// A parentless variable has a single empty combination.
func (n *Network) ParentCombinations(name string) ([][]string, error) {
	v, err := n.lookup(name)
	if err != nil {
		return nil, err
	}
	domains := make([][]string, len(n.parents[v]))
	for j, p := range n.parents[v] {
		domains[j] = n.vars[p].Values
	}
	return Combinations(domains), nil
}

// Combinations returns the Cartesian product of domains with the last
// domain varying fastest.
func Combinations(domains [][]string) [][]string {
	if len(domains) == 0 {
		return [][]string{{}}
	}
	rest := Combinations(domains[1:])
	out := make([][]string, 0, len(domains[0])*len(rest))
	for _, head := range domains[0] {
		for _, tail := range rest {
			combo := make([]string, 0, len(tail)+1)
			combo = append(combo, head)
			combo = append(combo, tail...)
			out = append(out, combo)
		}
	}
	return out
}

// Dense, index-based accessors used by the inference engines. A state is a
// slice indexed by variable holding a value index, or Unassigned.

// Unassigned marks a variable without a value in a state slice.
const Unassigned = -1

// DomainSize returns the number of values of variable v.
func (n *Network) DomainSize(v int) int { return len(n.vars[v].Values) }

// Value returns the name of value index val of variable v.
func (n *Network) Value(v, val int) string { return n.vars[v].Values[val] }

// Name returns the name of variable v.
func (n *Network) Name(v int) string { return n.vars[v].Name }

// Parents returns the parent indexes of v. The slice must not be modified.
func (n *Network) Parents(v int) []int { return n.parents[v] }

// Children returns the child indexes of v. The slice must not be modified.
func (n *Network) Children(v int) []int { return n.children[v] }

// Row returns the distribution of v given the parent values held in state.
// Every parent of v must be assigned. The slice must not be modified.
func (n *Network) Row(v int, state []int) []float64 {
	row := 0
	for j, p := range n.parents[v] {
		row += state[p] * n.strides[v][j]
	}
	return n.rows[v][row]
}

// Prob returns P(v=val | parents as held in state).
func (n *Network) Prob(v, val int, state []int) float64 {
	return n.Row(v, state)[val]
}

// NewState returns a state with every variable unassigned.
func (n *Network) NewState() []int {
	state := make([]int, len(n.vars))
	for i := range state {
		state[i] = Unassigned
	}
	return state
}

// Assign converts a name/value mapping into a state, validating that every
// variable and value exists.
func (n *Network) Assign(values map[string]string) ([]int, error) {
	state := n.NewState()
	for name, value := range values {
		v, err := n.lookup(name)
		if err != nil {
			return nil, err
		}
		val, ok := n.valueIdx[v][value]
		if !ok {
			return nil, fmt.Errorf("%w: %q for variable %q", internalerr.ErrUnknownValue, value, name)
		}
		state[v] = val
	}
	return state, nil
}
