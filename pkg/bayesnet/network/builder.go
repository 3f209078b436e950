package network

import (
	"fmt"
	"math"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// DefaultRowTolerance is how far a CPT row may drift from summing to 1.
// Network files commonly carry probabilities rounded to a few decimals.
const DefaultRowTolerance = 1e-3

// CPT is a conditional probability table as supplied to the Builder.
// Rows are ordered like ParentCombinations; each row is ordered like the
// child's domain. A parentless variable has exactly one row.
type CPT struct {
	Parents []string
	Rows    [][]float64
}

// Builder accumulates variables and CPTs and validates them into a Network.
type Builder struct {
	// RowTolerance overrides DefaultRowTolerance when positive.
	RowTolerance float64

	vars  []Variable
	index map[string]int
	cpts  map[int]CPT
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		index: make(map[string]int),
		cpts:  make(map[int]CPT),
	}
}

// AddVariable declares a variable. Declaration order must be topological:
// a variable's parents have to be declared before it.
func (b *Builder) AddVariable(name string, values ...string) error {
	if name == "" {
		return fmt.Errorf("%w: empty variable name", internalerr.ErrInvalidNetwork)
	}
	if _, ok := b.index[name]; ok {
		return fmt.Errorf("%w: variable %q declared twice", internalerr.ErrInvalidNetwork, name)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: variable %q has an empty domain", internalerr.ErrInvalidNetwork, name)
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%w: variable %q repeats value %q", internalerr.ErrInvalidNetwork, name, v)
		}
		seen[v] = struct{}{}
	}

	b.index[name] = len(b.vars)
	b.vars = append(b.vars, Variable{Name: name, Values: append([]string(nil), values...)})
	return nil
}

// Domain returns the declared domain of a variable.
func (b *Builder) Domain(name string) ([]string, bool) {
	i, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return b.vars[i].Values, true
}

// SetCPT attaches the table for child. The number of rows must equal the
// product of the parent domain sizes and each row must have one entry per
// child value.
func (b *Builder) SetCPT(child string, cpt CPT) error {
	c, ok := b.index[child]
	if !ok {
		return fmt.Errorf("%w: cpt for %q", internalerr.ErrUnknownVariable, child)
	}
	if _, dup := b.cpts[c]; dup {
		return fmt.Errorf("%w: cpt for %q given twice", internalerr.ErrInvalidNetwork, child)
	}

	want := 1
	seen := make(map[string]struct{}, len(cpt.Parents))
	for _, p := range cpt.Parents {
		pi, ok := b.index[p]
		if !ok {
			return fmt.Errorf("%w: parent %q of %q", internalerr.ErrUnknownVariable, p, child)
		}
		if pi == c {
			return fmt.Errorf("%w: %q lists itself as a parent", internalerr.ErrInvalidNetwork, child)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %q lists parent %q twice", internalerr.ErrInvalidNetwork, child, p)
		}
		seen[p] = struct{}{}
		want *= len(b.vars[pi].Values)
	}

	if len(cpt.Rows) != want {
		return fmt.Errorf("%w: %q has %d rows, want %d",
			internalerr.ErrMissingCPTEntry, child, len(cpt.Rows), want)
	}
	width := len(b.vars[c].Values)
	rows := make([][]float64, len(cpt.Rows))
	for r, row := range cpt.Rows {
		if len(row) != width {
			return fmt.Errorf("%w: %q row %d has %d entries, want %d",
				internalerr.ErrInvalidNetwork, child, r, len(row), width)
		}
		rows[r] = append([]float64(nil), row...)
	}

	b.cpts[c] = CPT{Parents: append([]string(nil), cpt.Parents...), Rows: rows}
	return nil
}

// Build validates the accumulated definition and returns an immutable
// Network.
func (b *Builder) Build() (*Network, error) {
	tol := b.RowTolerance
	if tol <= 0 {
		tol = DefaultRowTolerance
	}
	if len(b.vars) == 0 {
		return nil, fmt.Errorf("%w: no variables", internalerr.ErrInvalidNetwork)
	}

	n := &Network{
		vars:     make([]Variable, len(b.vars)),
		index:    make(map[string]int, len(b.vars)),
		valueIdx: make([]map[string]int, len(b.vars)),
		parents:  make([][]int, len(b.vars)),
		children: make([][]int, len(b.vars)),
		strides:  make([][]int, len(b.vars)),
		rows:     make([][][]float64, len(b.vars)),
	}

	for i, v := range b.vars {
		n.vars[i] = v
		n.index[v.Name] = i
		n.valueIdx[i] = make(map[string]int, len(v.Values))
		for j, val := range v.Values {
			n.valueIdx[i][val] = j
		}
	}

	for i, v := range b.vars {
		cpt, ok := b.cpts[i]
		if !ok {
			return nil, fmt.Errorf("%w: no cpt for %q", internalerr.ErrMissingCPTEntry, v.Name)
		}

		parents := make([]int, len(cpt.Parents))
		for j, p := range cpt.Parents {
			pi := b.index[p]
			if pi > i {
				return nil, fmt.Errorf("%w: parent %q of %q is declared after it",
					internalerr.ErrInvalidNetwork, p, v.Name)
			}
			parents[j] = pi
			n.children[pi] = append(n.children[pi], i)
		}

		strides := make([]int, len(parents))
		stride := 1
		for j := len(parents) - 1; j >= 0; j-- {
			strides[j] = stride
			stride *= len(b.vars[parents[j]].Values)
		}

		for r, row := range cpt.Rows {
			sum := 0.0
			for _, p := range row {
				if p < 0 || p > 1 || math.IsNaN(p) {
					return nil, fmt.Errorf("%w: %q row %d has probability %v outside [0,1]",
						internalerr.ErrInvalidNetwork, v.Name, r, p)
				}
				sum += p
			}
			if math.Abs(sum-1) > tol {
				return nil, fmt.Errorf("%w: %q row %d sums to %.6f",
					internalerr.ErrInvalidNetwork, v.Name, r, sum)
			}
		}

		n.parents[i] = parents
		n.strides[i] = strides
		n.rows[i] = cpt.Rows
	}

	return n, nil
}
