// Package nettest provides small reference networks for tests.
package nettest

import (
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

type variable struct {
	name    string
	values  []string
	parents []string
	rows    [][]float64
}

func build(vars ...variable) *network.Network {
	b := network.NewBuilder()
	for _, v := range vars {
		if err := b.AddVariable(v.name, v.values...); err != nil {
			panic(err)
		}
	}
	for _, v := range vars {
		if err := b.SetCPT(v.name, network.CPT{Parents: v.parents, Rows: v.rows}); err != nil {
			panic(err)
		}
	}
	n, err := b.Build()
	if err != nil {
		panic(err)
	}
	return n
}

var tf = []string{"true", "false"}

// TwoNode is A → B with P(A=true)=0.3, P(B=true|A=true)=0.8 and
// P(B=true|A=false)=0.1, so P(B=true)=0.31.
func TwoNode() *network.Network {
	return build(
		variable{name: "A", values: tf, rows: [][]float64{{0.3, 0.7}}},
		variable{name: "B", values: tf, parents: []string{"A"}, rows: [][]float64{
			{0.8, 0.2},
			{0.1, 0.9},
		}},
	)
}

// Chain is the binary chain A → B → C.
func Chain() *network.Network {
	return build(
		variable{name: "A", values: tf, rows: [][]float64{{0.4, 0.6}}},
		variable{name: "B", values: tf, parents: []string{"A"}, rows: [][]float64{
			{0.7, 0.3},
			{0.2, 0.8},
		}},
		variable{name: "C", values: tf, parents: []string{"B"}, rows: [][]float64{
			{0.9, 0.1},
			{0.25, 0.75},
		}},
	)
}

// Sprinkler is the classic Cloudy/Sprinkler/Rain/WetGrass network. WetGrass
// has two parents, which exercises multi-parent CPT indexing.
func Sprinkler() *network.Network {
	return build(
		variable{name: "Cloudy", values: tf, rows: [][]float64{{0.5, 0.5}}},
		variable{name: "Sprinkler", values: tf, parents: []string{"Cloudy"}, rows: [][]float64{
			{0.1, 0.9},
			{0.5, 0.5},
		}},
		variable{name: "Rain", values: tf, parents: []string{"Cloudy"}, rows: [][]float64{
			{0.8, 0.2},
			{0.2, 0.8},
		}},
		variable{name: "WetGrass", values: tf, parents: []string{"Sprinkler", "Rain"}, rows: [][]float64{
			{0.99, 0.01},
			{0.9, 0.1},
			{0.9, 0.1},
			{0.0, 1.0},
		}},
	)
}

// Weather has a three-valued root to check that domain order is preserved.
func Weather() *network.Network {
	return build(
		variable{name: "Sky", values: []string{"sunny", "cloudy", "rainy"}, rows: [][]float64{{0.5, 0.3, 0.2}}},
		variable{name: "Umbrella", values: []string{"yes", "no"}, parents: []string{"Sky"}, rows: [][]float64{
			{0.05, 0.95},
			{0.3, 0.7},
			{0.9, 0.1},
		}},
	)
}
