// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// CreateEdge connects two nodes with a relation label. Both endpoints
// must exist and the edge-kind registry must permit the triple
// (from_node.kind, to_node.kind, relation). Composite-key uniqueness is
// enforced by the primary key and translated into a Conflict error.
func (s *Store) CreateEdge(ctx context.Context, fromID, toID, relation string) (*store.Edge, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx, "create_edge")

	fromKind, err := nodeKind(ctx, tx, fromID)
	if rherr.IsNotFound(err) {
		return nil, rherr.New(rherr.CodeEdgeEndpointMissing, "from node not found", rherr.FieldNodeID(fromID))
	}
	if err != nil {
		return nil, err
	}

	toKind, err := nodeKind(ctx, tx, toID)
	if rherr.IsNotFound(err) {
		return nil, rherr.New(rherr.CodeEdgeEndpointMissing, "to node not found", rherr.FieldNodeID(toID))
	}
	if err != nil {
		return nil, err
	}

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM edge_kinds WHERE from_kind = ? AND to_kind = ? AND relation = ?`,
		fromKind, toKind, relation,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rherr.New(rherr.CodeEdgeNotAllowed, "edge relation not allowed by edge kinds",
			rherr.FieldKind(fromKind), rherr.Field("to_kind", toKind), rherr.FieldRelation(relation))
	}
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "checking edge kind: %w", err)
	}

	edge := &store.Edge{
		FromID:    fromID,
		ToID:      toID,
		Relation:  relation,
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO edges (from_id, to_id, relation, created_at) VALUES (?, ?, ?, ?)`,
		edge.FromID, edge.ToID, edge.Relation, formatTime(edge.CreatedAt),
	)
	if isUniqueViolation(err) {
		return nil, rherr.New(rherr.CodeEdgeConflict, "edge already exists",
			rherr.Field("from_id", fromID), rherr.Field("to_id", toID), rherr.FieldRelation(relation))
	}
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "creating edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "committing edge create: %w", err)
	}
	return edge, nil
}

// nodeKind returns the kind of the node with the given id.
func nodeKind(ctx context.Context, q querier, id string) (string, error) {
	var kind string
	err := q.QueryRowContext(ctx, `SELECT kind FROM nodes WHERE id = ?`, id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", rherr.New(rherr.CodeNodeNotFound, "node not found", rherr.FieldNodeID(id))
	}
	if err != nil {
		return "", rherr.Errorf(rherr.CodeStoreDatabaseFailure, "getting node %s kind: %w", id, err)
	}
	return kind, nil
}

// ListOutgoingEdges returns edges whose source is nodeID. The node must
// exist.
func (s *Store) ListOutgoingEdges(ctx context.Context, nodeID string) ([]*store.Edge, error) {
	if _, err := nodeKind(ctx, s.db, nodeID); err != nil {
		return nil, err
	}
	return s.listEdges(ctx,
		`SELECT from_id, to_id, relation, created_at FROM edges
WHERE from_id = ? ORDER BY to_id, relation`, nodeID)
}

// ListIncomingEdges returns edges whose target is nodeID. The node must
// exist.
func (s *Store) ListIncomingEdges(ctx context.Context, nodeID string) ([]*store.Edge, error) {
	if _, err := nodeKind(ctx, s.db, nodeID); err != nil {
		return nil, err
	}
	return s.listEdges(ctx,
		`SELECT from_id, to_id, relation, created_at FROM edges
WHERE to_id = ? ORDER BY from_id, relation`, nodeID)
}

// ListEdgesBetween returns edges from fromID to toID. Missing nodes
// read as an empty list, mirroring "no edges" rather than "bad request".
func (s *Store) ListEdgesBetween(ctx context.Context, fromID, toID string) ([]*store.Edge, error) {
	return s.listEdges(ctx,
		`SELECT from_id, to_id, relation, created_at FROM edges
WHERE from_id = ? AND to_id = ? ORDER BY relation`, fromID, toID)
}

func (s *Store) listEdges(ctx context.Context, query string, args ...any) ([]*store.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "listing edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []*store.Edge
	for rows.Next() {
		var (
			edge      store.Edge
			createdAt string
		)
		if err := rows.Scan(&edge.FromID, &edge.ToID, &edge.Relation, &createdAt); err != nil {
			return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "scanning edge row: %w", err)
		}
		edge.CreatedAt = parseTime(createdAt)
		edges = append(edges, &edge)
	}
	if err := rows.Err(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "iterating edges: %w", err)
	}
	return edges, nil
}

// DeleteEdge removes the edge identified by the composite key. Edges
// own nothing, so there is no cascade.
func (s *Store) DeleteEdge(ctx context.Context, fromID, toID, relation string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM edges WHERE from_id = ? AND to_id = ? AND relation = ?`,
		fromID, toID, relation,
	)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "deleting edge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "checking rows affected for edge delete: %w", err)
	}
	if rows == 0 {
		return rherr.New(rherr.CodeEdgeNotFound, "edge not found",
			rherr.Field("from_id", fromID), rherr.Field("to_id", toID), rherr.FieldRelation(relation))
	}
	return nil
}
