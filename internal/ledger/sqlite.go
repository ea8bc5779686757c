package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements Store using SQLite (for local runs)
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) the ledger database at path.
func NewSQLiteStore(path string, logger logrus.FieldLogger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// WAL lets `monorel history` read while a release is writing
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{sqlStore{db: db, logger: logger}}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS releases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		project TEXT NOT NULL,
		previous_version TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL DEFAULT '',
		tag TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		registry TEXT NOT NULL DEFAULT '',
		artifact_url TEXT NOT NULL DEFAULT '',
		commit_hash TEXT NOT NULL DEFAULT '',
		dry_run BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_releases_project ON releases(project, created_at);
	CREATE INDEX IF NOT EXISTS idx_releases_run ON releases(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
