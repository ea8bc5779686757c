package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// sqlStore holds the queries shared by the SQLite and PostgreSQL stores.
// Queries are written with ? placeholders and rebound per driver.
type sqlStore struct {
	db        *sqlx.DB
	logger    logrus.FieldLogger
	returning bool // driver supports INSERT ... RETURNING id via Get
}

const insertRelease = `
	INSERT INTO releases
	(run_id, project, previous_version, version, tag, status, reason,
	 registry, artifact_url, commit_hash, dry_run, created_at)
	VALUES (:run_id, :project, :previous_version, :version, :tag, :status, :reason,
	 :registry, :artifact_url, :commit_hash, :dry_run, :created_at)
`

func (s *sqlStore) Record(ctx context.Context, r *Release) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	if s.returning {
		stmt, err := s.db.PrepareNamedContext(ctx, insertRelease+" RETURNING id")
		if err != nil {
			return fmt.Errorf("prepare release insert: %w", err)
		}
		defer stmt.Close()
		if err := stmt.GetContext(ctx, &r.ID, r); err != nil {
			return fmt.Errorf("record release: %w", err)
		}
	} else {
		res, err := s.db.NamedExecContext(ctx, insertRelease, r)
		if err != nil {
			return fmt.Errorf("record release: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			r.ID = id
		}
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  r.RunID,
		"project": r.Project,
		"version": r.Version,
		"status":  r.Status,
	}).Debug("recorded release")
	return nil
}

func (s *sqlStore) History(ctx context.Context, f Filter) ([]Release, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Project != "" {
		where = append(where, "project = ?")
		args = append(args, f.Project)
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	query := "SELECT * FROM releases"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var releases []Release
	if err := s.db.SelectContext(ctx, &releases, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return releases, nil
}

func (s *sqlStore) Latest(ctx context.Context, project string) (*Release, error) {
	var r Release
	query := s.db.Rebind(`
		SELECT * FROM releases
		WHERE project = ? AND status = ? AND dry_run = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)
	err := s.db.GetContext(ctx, &r, query, project, StatusReleased, false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest release: %w", err)
	}
	return &r, nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}
