package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS networks (
	name TEXT PRIMARY KEY,
	format TEXT NOT NULL,
	source BLOB NOT NULL,
	variables INTEGER NOT NULL,
	loaded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	network TEXT NOT NULL,
	method TEXT NOT NULL,
	query TEXT NOT NULL,
	dist_values TEXT NOT NULL,
	dist_probs TEXT NOT NULL,
	samples INTEGER NOT NULL DEFAULT 0,
	accepted INTEGER NOT NULL DEFAULT 0,
	burn_in INTEGER NOT NULL DEFAULT 0,
	elapsed_ns INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_network_created ON runs(network, created_at);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertNetwork inserts or replaces a network definition
func (s *sqliteStore) UpsertNetwork(ctx context.Context, n store.NetworkRecord) error {
	const stmt = `
INSERT INTO networks (name, format, source, variables, loaded_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	format=excluded.format,
	source=excluded.source,
	variables=excluded.variables,
	loaded_at=excluded.loaded_at;
`
	_, err := s.db.ExecContext(ctx, stmt, n.Name, n.Format, n.Source, n.Variables, n.LoadedAt.UnixNano())
	return err
}

// GetNetwork returns a network by name
func (s *sqliteStore) GetNetwork(ctx context.Context, name string) (store.NetworkRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, format, source, variables, loaded_at FROM networks WHERE name = ?`, name)

	n, err := scanNetwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.NetworkRecord{}, false, nil
	}
	if err != nil {
		return store.NetworkRecord{}, false, err
	}
	return n, true, nil
}

// ListNetworks returns all networks sorted by name
func (s *sqliteStore) ListNetworks(ctx context.Context) ([]store.NetworkRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, format, source, variables, loaded_at FROM networks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.NetworkRecord
	for rows.Next() {
		n, err := scanNetwork(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNetwork(sc scanner) (store.NetworkRecord, error) {
	var (
		n        store.NetworkRecord
		loadedAt int64
	)
	if err := sc.Scan(&n.Name, &n.Format, &n.Source, &n.Variables, &loadedAt); err != nil {
		return store.NetworkRecord{}, err
	}
	n.LoadedAt = time.Unix(0, loadedAt).UTC()
	return n, nil
}

// InsertRun records one inference call
func (s *sqliteStore) InsertRun(ctx context.Context, r store.Run) error {
	values, err := json.Marshal(nonNil(r.Values))
	if err != nil {
		return err
	}
	probs, err := json.Marshal(nonNilFloats(r.Probs))
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO runs (id, network, method, query, dist_values, dist_probs,
	samples, accepted, burn_in, elapsed_ns, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(ctx, stmt,
		r.ID, r.Network, r.Method, r.Query, string(values), string(probs),
		r.Samples, r.Accepted, r.BurnIn, int64(r.Elapsed), r.Error, r.CreatedAt.UnixNano(),
	)
	return err
}

// ListRuns returns the newest runs first, optionally filtered by network
func (s *sqliteStore) ListRuns(ctx context.Context, network string, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = store.DefaultRunLimit
	}

	const cols = `id, network, method, query, dist_values, dist_probs,
	samples, accepted, burn_in, elapsed_ns, error, created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if network == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+cols+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+cols+` FROM runs WHERE network = ? ORDER BY created_at DESC, id DESC LIMIT ?`, network, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		var (
			r                  store.Run
			values, probs      string
			elapsed, createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.Network, &r.Method, &r.Query, &values, &probs,
			&r.Samples, &r.Accepted, &r.BurnIn, &elapsed, &r.Error, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(values), &r.Values); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(probs), &r.Probs); err != nil {
			return nil, err
		}
		r.Elapsed = time.Duration(elapsed)
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilFloats(in []float64) []float64 {
	if in == nil {
		return []float64{}
	}
	return in
}
