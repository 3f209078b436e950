package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100000, cfg.Sampling.RejectionSamples)
	assert.Equal(t, 1000, cfg.Sampling.GibbsBurnIn)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeFile(t, "bayesnet.yaml", `
sampling:
  rejection_samples: 5000
  seed: 42
store:
  driver: sqlite
  path: /tmp/history.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Sampling.RejectionSamples)
	assert.Equal(t, uint64(42), cfg.Sampling.Seed)
	assert.Equal(t, 100000, cfg.Sampling.GibbsIterations)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/history.db", cfg.Store.Path)
	assert.Equal(t, "text", cfg.Log.Format)

	assert.Equal(t, 5000, cfg.Rejection().Samples)
	assert.Equal(t, uint64(42), cfg.Gibbs().Seed)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"burn-in too large":   "sampling:\n  gibbs_iterations: 100\n  gibbs_burn_in: 100\n",
		"zero samples":        "sampling:\n  rejection_samples: 0\n",
		"unknown driver":      "store:\n  driver: postgres\n",
		"sqlite without path": "store:\n  driver: sqlite\n  path: \"\"\n",
		"unknown level":       "log:\n  level: chatty\n",
		"unknown format":      "log:\n  format: xml\n",
		"not yaml":            "sampling: [\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", content))
			assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/bayesnet.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), comp.Config)
	assert.Nil(t, comp.Network)
}

func TestLoaderWithNetwork(t *testing.T) {
	loader := Loader{
		ConfigPath:  writeFile(t, "c.yaml", "log:\n  level: debug\n"),
		NetworkPath: "../../../testdata/networks/twonode.bn",
	}

	comp, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", comp.Config.Log.Level)
	require.NotNil(t, comp.Network)
	assert.Equal(t, "twonode", comp.Network.Name)
}

func TestLoaderNonExistentNetwork(t *testing.T) {
	loader := Loader{NetworkPath: "/nonexistent/net.bn"}
	_, err := loader.Load()
	assert.Error(t, err)
}

func TestLoaderMalformedNetwork(t *testing.T) {
	loader := Loader{NetworkPath: writeFile(t, "bad.bn", "this is not a network")}
	_, err := loader.Load()
	assert.ErrorIs(t, err, internalerr.ErrMalformedFile)
}
