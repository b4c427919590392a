// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

// Package sqlite implements the graph store over a single SQLite
// database. Referential invariants live in the schema itself: UNIQUE
// and PRIMARY KEY constraints back every Conflict error, nodes.kind is
// RESTRICT so a referenced kind cannot vanish, and node deletion
// cascades to edges and attachments at the storage layer. Constraint
// violations are translated after the write attempt, never replaced by
// check-then-act.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/rhyolite-dev/rhyolite/internal/blob"
	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// Compile-time interface check.
var _ store.Stores = (*Store)(nil)

// Store implements store.Stores backed by SQLite.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	validator store.SchemaValidator
	blobs     blob.Store
}

func init() {
	store.RegisterBackend("sqlite", func(path string, deps store.Deps) (store.Stores, error) {
		return New(path, deps)
	})
}

// New opens (or creates) the graph database at dbPath and initialises
// the five tables. The validator and blob store are required.
func New(dbPath string, deps store.Deps) (*Store, error) {
	if deps.Validator == nil {
		return nil, rherr.New(rherr.CodeStoreDatabaseFailure, "schema validator is required")
	}
	if deps.Blobs == nil {
		return nil, rherr.New(rherr.CodeStoreDatabaseFailure, "blob store is required")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "migrating graph tables: %w", err)
	}

	return &Store{
		db:        db,
		logger:    slog.Default(),
		validator: deps.Validator,
		blobs:     deps.Blobs,
	}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kinds (
	name   TEXT PRIMARY KEY,
	schema TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL REFERENCES kinds(name) ON DELETE RESTRICT,
	payload    TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind);

CREATE TABLE IF NOT EXISTS edge_kinds (
	from_kind TEXT NOT NULL REFERENCES kinds(name) ON DELETE CASCADE,
	to_kind   TEXT NOT NULL REFERENCES kinds(name) ON DELETE CASCADE,
	relation  TEXT NOT NULL,
	PRIMARY KEY (from_kind, to_kind, relation)
);

CREATE TABLE IF NOT EXISTS edges (
	from_id    TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	to_id      TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	relation   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id, relation)
);

CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);

CREATE TABLE IF NOT EXISTS attachments (
	id         TEXT PRIMARY KEY,
	node_id    TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	mime_type  TEXT NOT NULL,
	name       TEXT NOT NULL,
	blob_key   TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attachments_node ON attachments(node_id);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable and the core table
// exists, mirroring the readiness probe of the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'kinds'`).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return rherr.New(rherr.CodeStoreDatabaseFailure, "graph tables not initialised")
	}
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "pinging database: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure, the signal translated into Conflict errors.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint
// failure: a referenced row vanished, or a referencing row blocks a
// RESTRICT delete.
func isForeignKeyViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// rollback logs a failed rollback; callers defer it after BeginTx.
func (s *Store) rollback(ctx context.Context, tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.ErrorContext(ctx, "rollback failed", "op", op, "error", err)
	}
}

// formatTime serialises a time.Time to RFC3339 text in UTC.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
