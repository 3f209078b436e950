package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/storetest"
)

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		return st
	})
}

// TestSQLitePersistsAcrossReopen checks that history survives closing the
// database.
func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, st.UpsertNetwork(ctx, store.NetworkRecord{Name: "chain", Format: "text", Source: []byte("x")}))
	require.NoError(t, st.InsertRun(ctx, store.Run{ID: "01J1", Network: "chain", Method: "gibbs", Query: "A"}))
	require.NoError(t, st.Close())

	st, err = OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer st.Close()

	_, found, err := st.GetNetwork(ctx, "chain")
	require.NoError(t, err)
	assert.True(t, found)

	runs, err := st.ListRuns(ctx, "chain", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "gibbs", runs[0].Method)
}

func TestSQLiteInvalidPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "/nonexistent/directory/test.db")
	assert.Error(t, err)
}
