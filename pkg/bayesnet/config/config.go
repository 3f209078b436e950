package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/gibbs"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/rejection"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Config is the top-level configuration file
type Config struct {
	Sampling Sampling `yaml:"sampling"`
	Store    Store    `yaml:"store"`
	Log      Log      `yaml:"log"`
}

// Sampling holds the sample budgets of the approximate engines
type Sampling struct {
	RejectionSamples int    `yaml:"rejection_samples"`
	GibbsIterations  int    `yaml:"gibbs_iterations"`
	GibbsBurnIn      int    `yaml:"gibbs_burn_in"`
	Seed             uint64 `yaml:"seed"` // 0 = nondeterministic
}

// Store selects where networks and query history are kept
type Store struct {
	Driver string `yaml:"driver"` // "memory" or "sqlite"
	Path   string `yaml:"path"`   // sqlite database file
}

// Log configures the logger
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sampling: Sampling{
			RejectionSamples: rejection.DefaultSamples,
			GibbsIterations:  gibbs.DefaultIterations,
			GibbsBurnIn:      gibbs.DefaultBurnIn,
		},
		Store: Store{
			Driver: DriverMemory,
			Path:   "bayesnet.db",
		},
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Sampling.RejectionSamples <= 0 {
		return fmt.Errorf("%w: rejection_samples must be positive", internalerr.ErrInvalidConfig)
	}
	if err := c.Gibbs().Validate(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: sqlite store needs a path", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", internalerr.ErrInvalidConfig, c.Store.Driver)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", internalerr.ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", internalerr.ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Rejection returns the rejection sampler settings.
func (c Config) Rejection() rejection.Config {
	return rejection.Config{Samples: c.Sampling.RejectionSamples, Seed: c.Sampling.Seed}
}

// Gibbs returns the Gibbs sampler settings.
func (c Config) Gibbs() gibbs.Config {
	return gibbs.Config{
		Iterations: c.Sampling.GibbsIterations,
		BurnIn:     c.Sampling.GibbsBurnIn,
		Seed:       c.Sampling.Seed,
	}
}
