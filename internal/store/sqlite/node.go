// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rhyolite-dev/rhyolite/internal/search"
	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// CreateNode validates payload against the kind's schema and persists a
// new node with a fresh identifier. Both timestamps are set from the
// same instant.
func (s *Store) CreateNode(ctx context.Context, kindName string, payload map[string]any) (*store.Node, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx, "create_node")

	kind, err := getKind(ctx, tx, kindName)
	if rherr.IsNotFound(err) {
		return nil, rherr.New(rherr.CodeNodeKindUnknown, "unknown kind", rherr.FieldKind(kindName))
	}
	if err != nil {
		return nil, err
	}

	if err := s.validatePayload(kind, payload); err != nil {
		return nil, err
	}

	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "marshalling payload: %w", err)
	}

	node := &store.Node{
		ID:      uuid.New().String(),
		Kind:    kindName,
		Payload: payload,
	}
	now := time.Now().UTC()
	node.CreatedAt = now
	node.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO nodes (id, kind, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		node.ID, node.Kind, string(payloadJSON), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "creating node: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "committing node create: %w", err)
	}
	return node, nil
}

// GetNode returns the node with the given id.
func (s *Store) GetNode(ctx context.Context, id string) (*store.Node, error) {
	return scanNode(s.db.QueryRowContext(ctx,
		`SELECT id, kind, payload, created_at, updated_at FROM nodes WHERE id = ?`, id), id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner, id string) (*store.Node, error) {
	var (
		node                 store.Node
		payloadJSON          string
		createdAt, updatedAt string
	)
	err := row.Scan(&node.ID, &node.Kind, &payloadJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rherr.New(rherr.CodeNodeNotFound, "node not found", rherr.FieldNodeID(id))
	}
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "scanning node %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(payloadJSON), &node.Payload); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "unmarshalling payload for node %s: %w", node.ID, err)
	}
	node.CreatedAt = parseTime(createdAt)
	node.UpdatedAt = parseTime(updatedAt)
	return &node, nil
}

// UpdateNode replaces a node's payload after validating it against the
// kind's current schema (looked up live, never cached on the node) and
// bumps updated_at. The node's kind is immutable.
func (s *Store) UpdateNode(ctx context.Context, id string, payload map[string]any) (*store.Node, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx, "update_node")

	node, err := scanNode(tx.QueryRowContext(ctx,
		`SELECT id, kind, payload, created_at, updated_at FROM nodes WHERE id = ?`, id), id)
	if err != nil {
		return nil, err
	}

	kind, err := getKind(ctx, tx, node.Kind)
	if err != nil {
		return nil, err
	}

	if err := s.validatePayload(kind, payload); err != nil {
		return nil, err
	}

	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "marshalling payload: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE nodes SET payload = ?, updated_at = ? WHERE id = ?`,
		string(payloadJSON), formatTime(now), id,
	)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "updating node %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "committing node update %s: %w", id, err)
	}

	node.Payload = payload
	node.UpdatedAt = now
	return node, nil
}

// DeleteNode removes a node. Edge and attachment rows go with it via
// the storage-level cascade; attachment bytes are removed from the blob
// store after the transaction commits, best-effort.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer s.rollback(ctx, tx, "delete_node")

	blobKeys, err := attachmentBlobKeys(ctx, tx, id)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "deleting node %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "checking rows affected for node %s: %w", id, err)
	}
	if rows == 0 {
		return rherr.New(rherr.CodeNodeNotFound, "node not found", rherr.FieldNodeID(id))
	}

	if err := tx.Commit(); err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "committing node delete %s: %w", id, err)
	}

	// Metadata consistency takes precedence over storage reclamation:
	// blob removal failures are reported, never propagated.
	for _, key := range blobKeys {
		if err := s.blobs.Delete(key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete attachment blob",
				"node_id", id, "blob_key", key, "error", err)
		}
	}
	return nil
}

// SearchNodes evaluates the compiled predicate query over node
// payloads. Ordering is by creation time then id, so results are
// deterministic for a fixed store state.
func (s *Store) SearchNodes(ctx context.Context, q search.Query) ([]*store.Node, error) {
	clause, args, err := search.Compile(q)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, kind, payload, created_at, updated_at FROM nodes`
	if clause != "" {
		query += ` WHERE ` + clause
	}
	query += ` ORDER BY created_at, id`
	if q.Limit != nil {
		query += ` LIMIT ?`
		args = append(args, *q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "searching nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []*store.Node
	for rows.Next() {
		node, err := scanNode(rows, "")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "iterating search results: %w", err)
	}
	return nodes, nil
}

// validatePayload runs payload through the schema validator and wraps
// any violations into a validation-failed error carrying the stable,
// structured error list.
func (s *Store) validatePayload(kind *store.Kind, payload map[string]any) error {
	violations, err := s.validator.Validate(kind.Schema, payload)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		return nil
	}

	verr := rherr.New(rherr.CodeNodeValidationFailed, "payload does not match schema",
		rherr.FieldKind(kind.Name))
	return rherr.WithValidationErrors(verr, violations)
}
