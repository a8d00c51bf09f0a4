// Package store persists projects and their pipeline steps in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed project store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// New opens (or creates) the database at dbPath and runs migrations. Use
// ":memory:" for an ephemeral store.
func New(dbPath string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.logger.Debug().Str("path", dbPath).Msg("store ready")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);

	CREATE TABLE IF NOT EXISTS steps (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		step_order INTEGER NOT NULL,
		content TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (project_id, step_order)
	);

	CREATE INDEX IF NOT EXISTS idx_steps_project ON steps(project_id);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate v1: %w", err)
	}
	return nil
}

// migrateV2 backfills missing steps on projects written before every
// project carried the full pipeline.
func (s *Store) migrateV2() error {
	var done string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'steps_backfilled'`).Scan(&done)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("migrate v2: %w", err)
	}

	rows, err := s.db.Query(`SELECT id FROM projects`)
	if err != nil {
		return fmt.Errorf("migrate v2: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("migrate v2: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("migrate v2: %w", err)
	}

	total := 0
	for _, id := range ids {
		added, err := s.repairSteps(context.Background(), id)
		if err != nil {
			return fmt.Errorf("migrate v2: %w", err)
		}
		total += added
	}
	if _, err := s.db.Exec(`INSERT INTO meta (key, value) VALUES ('steps_backfilled', '1')`); err != nil {
		return fmt.Errorf("migrate v2: %w", err)
	}
	if total > 0 {
		s.logger.Info().Int("steps", total).Int("projects", len(ids)).Msg("backfilled legacy project steps")
	}
	return nil
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
