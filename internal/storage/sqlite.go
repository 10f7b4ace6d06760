// Package storage opens the SQLite database behind the sqlite vector index.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// InMemory is the path that selects a private in-memory database.
const InMemory = ":memory:"

var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
}

// Store is an open index database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the index database at path, creating parent directories, and
// applies pending migrations. An empty path or InMemory opens an in-memory
// database.
//
// Indexes belong to sessions, which do not outlive the process, so any
// passages left in an on-disk database by a previous run are cleared.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = InMemory
	}
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	// One connection: an in-memory database is per connection, and on disk
	// it avoids "database is locked" between writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging index database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if s.path == InMemory {
		return nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM passage_vectors")
	if err != nil {
		return fmt.Errorf("clearing stale passages: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("cleared stale passages from index database", "path", s.path, "rows", n)
	}
	return nil
}

// DB returns the handle used by the vector store.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database path, or InMemory.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

type migration struct {
	version int
	name    string
}

func loadMigrations() ([]migration, error) {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	migrations := make([]migration, 0, len(entries))
	for _, name := range entries {
		var version int
		if _, err := fmt.Sscanf(filepath.Base(name), "%d_", &version); err != nil {
			return nil, fmt.Errorf("migration %q has no version prefix", name)
		}
		migrations = append(migrations, migration{version: version, name: name})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	applied, err := s.Versions(ctx)
	if err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		slog.Debug("applied index migration", "version", m.version)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	body, err := migrationsFS.ReadFile(m.name)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		return err
	}
	return tx.Commit()
}

// Versions returns the applied migration versions in ascending order.
func (s *Store) Versions(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_version ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("reading schema_version: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
