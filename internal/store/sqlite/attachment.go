// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// CreateAttachment stores the content bytes in the blob store and
// records the metadata row. The blob is written first so a metadata
// failure leaves at worst an orphaned blob, never a dangling row.
func (s *Store) CreateAttachment(ctx context.Context, nodeID, mimeType, name string, content io.Reader) (*store.Attachment, error) {
	if _, err := nodeKind(ctx, s.db, nodeID); err != nil {
		return nil, err
	}

	att := &store.Attachment{
		ID:        uuid.New().String(),
		NodeID:    nodeID,
		MimeType:  mimeType,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	att.BlobKey = nodeID + "/" + att.ID

	if err := s.blobs.Put(att.BlobKey, content); err != nil {
		return nil, rherr.Wrap(err, rherr.CodeBlobWriteFailure, "writing attachment content")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (id, node_id, mime_type, name, blob_key, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		att.ID, att.NodeID, att.MimeType, att.Name, att.BlobKey, formatTime(att.CreatedAt),
	)
	if err != nil {
		s.discardBlob(ctx, att.BlobKey)
		if isUniqueViolation(err) {
			return nil, rherr.New(rherr.CodeAttachmentConflict, "attachment already exists",
				rherr.Field("attachment_id", att.ID))
		}
		if isForeignKeyViolation(err) {
			// Node deleted between the existence check and the insert.
			return nil, rherr.New(rherr.CodeNodeNotFound, "node not found", rherr.FieldNodeID(nodeID))
		}
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "creating attachment: %w", err)
	}
	return att, nil
}

// GetAttachment returns attachment metadata by id.
func (s *Store) GetAttachment(ctx context.Context, id string) (*store.Attachment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, node_id, mime_type, name, blob_key, created_at FROM attachments WHERE id = ?`, id)
	return scanAttachment(row, id)
}

func scanAttachment(row *sql.Row, id string) (*store.Attachment, error) {
	var (
		att       store.Attachment
		createdAt string
	)
	err := row.Scan(&att.ID, &att.NodeID, &att.MimeType, &att.Name, &att.BlobKey, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rherr.New(rherr.CodeAttachmentNotFound, "attachment not found",
			rherr.Field("attachment_id", id))
	}
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "getting attachment %s: %w", id, err)
	}
	att.CreatedAt = parseTime(createdAt)
	return &att, nil
}

// ListAttachments returns metadata for all attachments of a node, in
// creation order. The node must exist.
func (s *Store) ListAttachments(ctx context.Context, nodeID string) ([]*store.Attachment, error) {
	if _, err := nodeKind(ctx, s.db, nodeID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, node_id, mime_type, name, blob_key, created_at FROM attachments
WHERE node_id = ? ORDER BY created_at, id`, nodeID)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "listing attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var atts []*store.Attachment
	for rows.Next() {
		var (
			att       store.Attachment
			createdAt string
		)
		if err := rows.Scan(&att.ID, &att.NodeID, &att.MimeType, &att.Name, &att.BlobKey, &createdAt); err != nil {
			return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "scanning attachment row: %w", err)
		}
		att.CreatedAt = parseTime(createdAt)
		atts = append(atts, &att)
	}
	if err := rows.Err(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "iterating attachments: %w", err)
	}
	return atts, nil
}

// DeleteAttachment removes the metadata row, then deletes the blob
// bytes best-effort. A failed byte deletion is logged, not surfaced:
// the metadata row is the source of truth.
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	var blobKey string
	err := s.db.QueryRowContext(ctx, `SELECT blob_key FROM attachments WHERE id = ?`, id).Scan(&blobKey)
	if errors.Is(err, sql.ErrNoRows) {
		return rherr.New(rherr.CodeAttachmentNotFound, "attachment not found",
			rherr.Field("attachment_id", id))
	}
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "getting attachment %s: %w", id, err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "deleting attachment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return rherr.Errorf(rherr.CodeStoreDatabaseFailure, "checking rows affected for attachment delete: %w", err)
	}
	if rows == 0 {
		return rherr.New(rherr.CodeAttachmentNotFound, "attachment not found",
			rherr.Field("attachment_id", id))
	}

	s.discardBlob(ctx, blobKey)
	return nil
}

// attachmentBlobKeys collects the blob keys of every attachment owned
// by a node, for cleanup after a cascading node delete.
func attachmentBlobKeys(ctx context.Context, tx *sql.Tx, nodeID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT blob_key FROM attachments WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "listing attachment blob keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "scanning blob key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, rherr.Errorf(rherr.CodeStoreDatabaseFailure, "iterating blob keys: %w", err)
	}
	return keys, nil
}

// discardBlob deletes blob bytes best-effort.
func (s *Store) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete attachment blob", "blob_key", key, "error", err)
	}
}
