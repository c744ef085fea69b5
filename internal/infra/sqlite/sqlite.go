// Package sqlite is an embedded alternative to the Postgres stores, for
// single-node and offline deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // driver: sqlite
)

const defaultDSN = "file:quiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS quizzes (
  id         TEXT PRIMARY KEY,
  data       TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
  id           TEXT PRIMARY KEY,
  user_id      TEXT NOT NULL,
  quiz_id      TEXT NOT NULL,
  score        INTEGER NOT NULL,
  total        INTEGER NOT NULL,
  percentage   INTEGER NOT NULL,
  passed       INTEGER NOT NULL,
  completed_at INTEGER NOT NULL, -- unix nanoseconds, UTC
  duration     REAL NOT NULL,
  answers      TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS scores_user_completed_idx ON scores (user_id, completed_at DESC);
CREATE INDEX IF NOT EXISTS scores_quiz_score_idx ON scores (quiz_id, score DESC, completed_at ASC);
`
