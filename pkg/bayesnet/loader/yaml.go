package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// yamlNetwork is the YAML network layout:
//
//	variables:
//	  - name: A
//	    values: ["true", "false"]
//	    cpt: [[0.3, 0.7]]
//	  - name: B
//	    values: ["true", "false"]
//	    parents: [A]
//	    cpt:
//	      - [0.8, 0.2]
//	      - [0.1, 0.9]
type yamlNetwork struct {
	Variables []yamlVariable `yaml:"variables"`
}

type yamlVariable struct {
	Name    string      `yaml:"name"`
	Values  []string    `yaml:"values"`
	Parents []string    `yaml:"parents"`
	CPT     [][]float64 `yaml:"cpt"`
}

// ParseYAML reads the YAML network format. Variables are declared in list
// order and CPT rows follow the same order as the text format.
func ParseYAML(data []byte) (*network.Network, error) {
	var doc yamlNetwork
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SyntaxError{Msg: "invalid yaml", Err: err}
	}
	if len(doc.Variables) == 0 {
		return nil, &SyntaxError{Msg: "no variables defined"}
	}

	b := network.NewBuilder()
	for _, v := range doc.Variables {
		if err := b.AddVariable(v.Name, v.Values...); err != nil {
			return nil, &SyntaxError{Msg: "bad variable", Err: err}
		}
	}
	for _, v := range doc.Variables {
		if err := b.SetCPT(v.Name, network.CPT{Parents: v.Parents, Rows: v.CPT}); err != nil {
			return nil, &SyntaxError{Msg: fmt.Sprintf("bad cpt for %q", v.Name), Err: err}
		}
	}

	net, err := b.Build()
	if err != nil {
		return nil, &SyntaxError{Msg: "invalid network", Err: err}
	}
	return net, nil
}
