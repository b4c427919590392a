// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// CreateEdgeKind registers a permitted (from_kind, to_kind, relation)
// triple. Both kinds are checked first so callers get "kind not found"
// rather than a bare constraint violation; composite-key uniqueness is
// still enforced by the primary key.
func (s *Store) CreateEdgeKind(ctx context.Context, ek *store.EdgeKind) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx, "create_edge_kind")

	for _, kindName := range []string{ek.FromKind, ek.ToKind} {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM kinds WHERE name = ?`, kindName).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return rherr.New(rherr.CodeKindNotFound, "kind not found", rherr.FieldKind(kindName))
		}
		if err != nil {
			return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "checking kind %s: %w", kindName, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO edge_kinds (from_kind, to_kind, relation) VALUES (?, ?, ?)`,
		ek.FromKind, ek.ToKind, ek.Relation,
	)
	if isUniqueViolation(err) {
		return rherr.New(rherr.CodeEdgeKindConflict, "edge kind already exists",
			rherr.FieldKind(ek.FromKind), rherr.Field("to_kind", ek.ToKind), rherr.FieldRelation(ek.Relation))
	}
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "creating edge kind: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "committing edge kind: %w", err)
	}
	return nil
}

// GetEdgeKind returns the edge kind identified by the composite key.
func (s *Store) GetEdgeKind(ctx context.Context, fromKind, toKind, relation string) (*store.EdgeKind, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM edge_kinds WHERE from_kind = ? AND to_kind = ? AND relation = ?`,
		fromKind, toKind, relation,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rherr.New(rherr.CodeEdgeKindNotFound, "edge kind not found",
			rherr.FieldKind(fromKind), rherr.Field("to_kind", toKind), rherr.FieldRelation(relation))
	}
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "getting edge kind: %w", err)
	}
	return &store.EdgeKind{FromKind: fromKind, ToKind: toKind, Relation: relation}, nil
}

// ListEdgeKinds returns all edge kinds ordered by the composite key.
func (s *Store) ListEdgeKinds(ctx context.Context) ([]*store.EdgeKind, error) {
	return s.listEdgeKinds(ctx,
		`SELECT from_kind, to_kind, relation FROM edge_kinds
ORDER BY from_kind, to_kind, relation`)
}

// ListEdgeKindsFrom returns edge kinds with the given source kind.
func (s *Store) ListEdgeKindsFrom(ctx context.Context, fromKind string) ([]*store.EdgeKind, error) {
	return s.listEdgeKinds(ctx,
		`SELECT from_kind, to_kind, relation FROM edge_kinds
WHERE from_kind = ? ORDER BY to_kind, relation`, fromKind)
}

// ListEdgeKindsFromTo returns edge kinds with the given source and
// target kinds.
func (s *Store) ListEdgeKindsFromTo(ctx context.Context, fromKind, toKind string) ([]*store.EdgeKind, error) {
	return s.listEdgeKinds(ctx,
		`SELECT from_kind, to_kind, relation FROM edge_kinds
WHERE from_kind = ? AND to_kind = ? ORDER BY relation`, fromKind, toKind)
}

func (s *Store) listEdgeKinds(ctx context.Context, query string, args ...any) ([]*store.EdgeKind, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "listing edge kinds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var eks []*store.EdgeKind
	for rows.Next() {
		var ek store.EdgeKind
		if err := rows.Scan(&ek.FromKind, &ek.ToKind, &ek.Relation); err != nil {
			return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "scanning edge kind row: %w", err)
		}
		eks = append(eks, &ek)
	}
	if err := rows.Err(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "iterating edge kinds: %w", err)
	}
	return eks, nil
}

// DeleteEdgeKind removes an edge kind. Whether edges instantiate the
// triple is determined by joining edges to their endpoint nodes' kinds
// within the delete transaction; there is no direct reference from an
// edge row to an edge-kind row.
func (s *Store) DeleteEdgeKind(ctx context.Context, fromKind, toKind, relation string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx, "delete_edge_kind")

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM edge_kinds WHERE from_kind = ? AND to_kind = ? AND relation = ?`,
		fromKind, toKind, relation,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return rherr.New(rherr.CodeEdgeKindNotFound, "edge kind not found",
			rherr.FieldKind(fromKind), rherr.Field("to_kind", toKind), rherr.FieldRelation(relation))
	}
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "checking edge kind: %w", err)
	}

	var edgeCount int
	err = tx.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM edges e
JOIN nodes nf ON nf.id = e.from_id
JOIN nodes nt ON nt.id = e.to_id
WHERE e.relation = ? AND nf.kind = ? AND nt.kind = ?`,
		relation, fromKind, toKind,
	).Scan(&edgeCount)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "counting edges for edge kind: %w", err)
	}
	if edgeCount > 0 {
		return rherr.New(rherr.CodeEdgeKindInUse, "cannot delete edge kind used by existing edges",
			rherr.FieldRelation(relation), rherr.Field("edge_count", edgeCount))
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM edge_kinds WHERE from_kind = ? AND to_kind = ? AND relation = ?`,
		fromKind, toKind, relation,
	)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "deleting edge kind: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "committing edge kind delete: %w", err)
	}
	return nil
}
