// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// CreateKind registers a new kind. The schema document is checked for
// being a valid JSON Schema before the write; name uniqueness is
// enforced by the primary key and translated into a Conflict error.
func (s *Store) CreateKind(ctx context.Context, kind *store.Kind) error {
	if kind.Name == "" {
		return rherr.New(rherr.CodeKindConflict, "kind name is required")
	}
	if err := s.validator.CheckSchema(kind.Schema); err != nil {
		return rherr.With(err, rherr.FieldKind(kind.Name))
	}

	schemaJSON, err := json.Marshal(kind.Schema)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "marshalling schema for kind %s: %w", kind.Name, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kinds (name, schema) VALUES (?, ?)`,
		kind.Name, string(schemaJSON),
	)
	if isUniqueViolation(err) {
		return rherr.New(rherr.CodeKindConflict, "kind already exists", rherr.FieldKind(kind.Name))
	}
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "creating kind %s: %w", kind.Name, err)
	}
	return nil
}

// GetKind returns the kind named name.
func (s *Store) GetKind(ctx context.Context, name string) (*store.Kind, error) {
	return getKind(ctx, s.db, name)
}

// querier abstracts *sql.DB and *sql.Tx so lookups run inside or
// outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getKind(ctx context.Context, q querier, name string) (*store.Kind, error) {
	var schemaJSON string
	err := q.QueryRowContext(ctx,
		`SELECT schema FROM kinds WHERE name = ?`, name).Scan(&schemaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rherr.New(rherr.CodeKindNotFound, "kind not found", rherr.FieldKind(name))
	}
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "getting kind %s: %w", name, err)
	}

	kind := &store.Kind{Name: name}
	if err := json.Unmarshal([]byte(schemaJSON), &kind.Schema); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "unmarshalling schema for kind %s: %w", name, err)
	}
	return kind, nil
}

// ListKinds returns all kinds ordered by name.
func (s *Store) ListKinds(ctx context.Context) ([]*store.Kind, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, schema FROM kinds ORDER BY name`)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "listing kinds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var kinds []*store.Kind
	for rows.Next() {
		var (
			kind       store.Kind
			schemaJSON string
		)
		if err := rows.Scan(&kind.Name, &schemaJSON); err != nil {
			return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "scanning kind row: %w", err)
		}
		if err := json.Unmarshal([]byte(schemaJSON), &kind.Schema); err != nil {
			return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "unmarshalling schema for kind %s: %w", kind.Name, err)
		}
		kinds = append(kinds, &kind)
	}
	if err := rows.Err(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "iterating kinds: %w", err)
	}
	return kinds, nil
}

// DeleteKind removes a kind. The node reference count is evaluated in
// the same transaction as the delete; the RESTRICT foreign key on
// nodes.kind backs the check against races. Edge-kinds referencing the
// kind are removed by the storage-level cascade.
func (s *Store) DeleteKind(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx, "delete_kind")

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM kinds WHERE name = ?`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return rherr.New(rherr.CodeKindNotFound, "kind not found", rherr.FieldKind(name))
	}
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "checking kind %s: %w", name, err)
	}

	var nodeCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE kind = ?`, name).Scan(&nodeCount)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "counting nodes for kind %s: %w", name, err)
	}
	if nodeCount > 0 {
		return rherr.New(rherr.CodeKindInUse, "cannot delete kind with existing nodes",
			rherr.FieldKind(name), rherr.Field("node_count", nodeCount))
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM kinds WHERE name = ?`, name)
	if isForeignKeyViolation(err) {
		// A node slipped in concurrently; the RESTRICT constraint wins.
		return rherr.New(rherr.CodeKindInUse, "cannot delete kind with existing nodes", rherr.FieldKind(name))
	}
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "deleting kind %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "committing kind delete %s: %w", name, err)
	}
	return nil
}
