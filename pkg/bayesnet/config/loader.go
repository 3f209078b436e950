package config

import (
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/loader"
)

// Loader loads the configuration file and an optional initial network
type Loader struct {
	ConfigPath  string
	NetworkPath string
}

// Components holds everything read from disk at startup
type Components struct {
	Config  Config
	Network *loader.Definition // nil when no network path was given
}

// Load reads the configured files. An empty ConfigPath yields Default().
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Config: Default()}

	if l.ConfigPath != "" {
		cfg, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	}

	if l.NetworkPath != "" {
		def, err := loader.LoadFile(l.NetworkPath)
		if err != nil {
			return nil, fmt.Errorf("load network: %w", err)
		}
		comp.Network = def
	}

	return comp, nil
}
