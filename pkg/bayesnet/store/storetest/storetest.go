// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// Run exercises open against the store contract. open must return a fresh,
// empty store for every call.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("networks", func(t *testing.T) { testNetworks(t, open(t)) })
	t.Run("runs", func(t *testing.T) { testRuns(t, open(t)) })
	t.Run("run limit and filter", func(t *testing.T) { testRunLimit(t, open(t)) })
}

func testNetworks(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, found, err := st.GetNetwork(ctx, "sprinkler")
	require.NoError(t, err)
	assert.False(t, found)

	loadedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := store.NetworkRecord{
		Name:      "sprinkler",
		Format:    "text",
		Source:    []byte("1\nA t f\n1\nA\n0.5 0.5\n"),
		Variables: 1,
		LoadedAt:  loadedAt,
	}
	require.NoError(t, st.UpsertNetwork(ctx, rec))
	require.NoError(t, st.UpsertNetwork(ctx, store.NetworkRecord{Name: "alarm", Format: "yaml", Source: []byte("x"), Variables: 5, LoadedAt: loadedAt}))

	got, found, err := st.GetNetwork(ctx, "sprinkler")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec.Source, got.Source)
	assert.Equal(t, "text", got.Format)
	assert.Equal(t, 1, got.Variables)
	assert.True(t, loadedAt.Equal(got.LoadedAt))

	// Reloading replaces the stored definition.
	rec.Variables = 2
	rec.Source = []byte("changed")
	require.NoError(t, st.UpsertNetwork(ctx, rec))
	got, _, err = st.GetNetwork(ctx, "sprinkler")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Variables)
	assert.Equal(t, []byte("changed"), got.Source)

	all, err := st.ListNetworks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alarm", all[0].Name)
	assert.Equal(t, "sprinkler", all[1].Name)
}

func testRuns(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := store.Run{
		ID:        "01J000000000000000000000A1",
		Network:   "sprinkler",
		Method:    "rejection",
		Query:     "Rain | WetGrass=true",
		Values:    []string{"true", "false"},
		Probs:     []float64{0.7079, 0.2921},
		Samples:   100000,
		Accepted:  64710,
		Elapsed:   150 * time.Millisecond,
		CreatedAt: base,
	}
	failed := store.Run{
		ID:        "01J000000000000000000000A2",
		Network:   "sprinkler",
		Method:    "exact",
		Query:     "Cloudy | Sprinkler=false Rain=false WetGrass=true",
		Error:     "evidence has zero likelihood",
		CreatedAt: base.Add(time.Second),
	}
	require.NoError(t, st.InsertRun(ctx, ok))
	require.NoError(t, st.InsertRun(ctx, failed))

	runs, err := st.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, failed.ID, runs[0].ID, "newest first")
	assert.Equal(t, failed.Error, runs[0].Error)
	assert.Empty(t, runs[0].Probs)

	got := runs[1]
	assert.Equal(t, ok.Values, got.Values)
	assert.Equal(t, ok.Probs, got.Probs)
	assert.Equal(t, ok.Samples, got.Samples)
	assert.Equal(t, ok.Accepted, got.Accepted)
	assert.Equal(t, ok.Elapsed, got.Elapsed)
	assert.Equal(t, ok.Query, got.Query)
	assert.True(t, base.Equal(got.CreatedAt))
}

func testRunLimit(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"01J0A", "01J0B", "01J0C", "01J0D"}
	for i, id := range ids {
		network := "chain"
		if i%2 == 1 {
			network = "sprinkler"
		}
		require.NoError(t, st.InsertRun(ctx, store.Run{
			ID:        id,
			Network:   network,
			Method:    "exact",
			Query:     "A",
			Values:    []string{"t", "f"},
			Probs:     []float64{0.5, 0.5},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := st.ListRuns(ctx, "", 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "01J0D", runs[0].ID)

	runs, err = st.ListRuns(ctx, "chain", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "01J0C", runs[0].ID)
	assert.Equal(t, "01J0A", runs[1].ID)
}
