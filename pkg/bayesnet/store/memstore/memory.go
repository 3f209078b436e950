package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	networks map[string]store.NetworkRecord
	runs     []store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		networks: make(map[string]store.NetworkRecord),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertNetwork inserts or replaces a network, keyed by name.
func (s *Store) UpsertNetwork(ctx context.Context, n store.NetworkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.Source = append([]byte(nil), n.Source...)
	s.networks[n.Name] = n
	return nil
}

// GetNetwork returns a network by name.
func (s *Store) GetNetwork(ctx context.Context, name string) (store.NetworkRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.networks[name]
	if !ok {
		return store.NetworkRecord{}, false, nil
	}
	n.Source = append([]byte(nil), n.Source...)
	return n, true, nil
}

// ListNetworks returns all networks sorted by name.
func (s *Store) ListNetworks(ctx context.Context) ([]store.NetworkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.NetworkRecord, 0, len(s.networks))
	for _, n := range s.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// InsertRun appends a run to the history.
func (s *Store) InsertRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, copyRun(r))
	return nil
}

// ListRuns returns the newest runs first, optionally filtered by network.
func (s *Store) ListRuns(ctx context.Context, network string, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = store.DefaultRunLimit
	}

	var out []store.Run
	for _, r := range s.runs {
		if network != "" && r.Network != network {
			continue
		}
		out = append(out, copyRun(r))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRun(r store.Run) store.Run {
	r.Values = append([]string(nil), r.Values...)
	r.Probs = append([]float64(nil), r.Probs...)
	return r
}
