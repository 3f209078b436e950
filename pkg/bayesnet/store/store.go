package store

import (
	"context"
	"time"
)

// Store persists loaded networks and the history of queries run on them
type Store interface {
	Close() error

	// Networks
	UpsertNetwork(ctx context.Context, n NetworkRecord) error
	GetNetwork(ctx context.Context, name string) (NetworkRecord, bool, error)
	ListNetworks(ctx context.Context) ([]NetworkRecord, error)

	// Query history
	InsertRun(ctx context.Context, r Run) error
	ListRuns(ctx context.Context, network string, limit int) ([]Run, error)
}

// NetworkRecord is a network definition as it was loaded
type NetworkRecord struct {
	Name      string
	Format    string // "text" or "yaml"
	Source    []byte
	Variables int
	LoadedAt  time.Time
}

// Run records one inference call, successful or not
type Run struct {
	ID        string // ULID
	Network   string
	Method    string
	Query     string
	Values    []string
	Probs     []float64
	Samples   int
	Accepted  int
	BurnIn    int
	Elapsed   time.Duration
	Error     string // empty on success
	CreatedAt time.Time
}

// DefaultRunLimit bounds ListRuns when no positive limit is given.
const DefaultRunLimit = 20
