// Package ledger keeps a history of release runs in SQLite (local) or
// PostgreSQL (shared CI) so that past outcomes can be listed and audited.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Status of one project in one run.
const (
	StatusReleased = "released"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Release is one project outcome recorded by a run.
type Release struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	Project   string    `db:"project"`
	Previous  string    `db:"previous_version"`
	Version   string    `db:"version"`
	Tag       string    `db:"tag"`
	Status    string    `db:"status"`
	Reason    string    `db:"reason"`
	Registry  string    `db:"registry"`
	URL       string    `db:"artifact_url"`
	Commit    string    `db:"commit_hash"`
	DryRun    bool      `db:"dry_run"`
	CreatedAt time.Time `db:"created_at"`
}

// Filter narrows a history query. Zero values match everything.
type Filter struct {
	Project string
	RunID   string
	Status  string
	Limit   int
}

// Store defines the storage interface
type Store interface {
	// Record saves r and fills in its ID and CreatedAt.
	Record(ctx context.Context, r *Release) error
	// History returns matching releases, newest first.
	History(ctx context.Context, f Filter) ([]Release, error)
	// Latest returns the newest released (not skipped or failed) entry for
	// project, or ErrNotFound.
	Latest(ctx context.Context, project string) (*Release, error)
	Close() error
}
