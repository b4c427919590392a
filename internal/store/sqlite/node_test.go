// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

func TestNodeStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)

	node, err := s.CreateNode(ctx, "person", map[string]any{"name": "Ada", "age": 36})
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "person", node.Kind)
	assert.False(t, node.CreatedAt.IsZero())
	assert.Equal(t, node.CreatedAt, node.UpdatedAt)

	got, err := s.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, node.ID, got.ID)
	assert.Equal(t, "Ada", got.Payload["name"])

	updated, err := s.UpdateNode(ctx, node.ID, map[string]any{"name": "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Payload["name"])
	assert.Equal(t, node.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(node.UpdatedAt))

	err = s.DeleteNode(ctx, node.ID)
	require.NoError(t, err)

	_, err = s.GetNode(ctx, node.ID)
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))
}

func TestNodeStore_CreateUnknownKind(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.CreateNode(context.Background(), "ghost", map[string]any{})
	require.Error(t, err)
	assert.True(t, rherr.IsInvalidOperation(err))
}

func TestNodeStore_CreateValidationFailure(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)

	_, err := s.CreateNode(ctx, "person", map[string]any{"age": "not-a-number"})
	require.Error(t, err)
	assert.True(t, rherr.IsValidationFailed(err))

	// Missing required name and wrong-typed age both surface.
	verrs := rherr.ValidationErrorsOf(err)
	assert.Len(t, verrs, 2)
}

func TestNodeStore_NilPayloadStoredAsEmptyObject(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	noteKind(t, s)

	node, err := s.CreateNode(ctx, "note", nil)
	require.NoError(t, err)

	got, err := s.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Payload)
	assert.Empty(t, got.Payload)
}

func TestNodeStore_UpdateValidatesAgainstCurrentSchema(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)

	node := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})

	_, err := s.UpdateNode(ctx, node.ID, map[string]any{"age": 36})
	require.Error(t, err)
	assert.True(t, rherr.IsValidationFailed(err))

	// Failed update leaves the stored payload untouched.
	got, err := s.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Payload["name"])
}

func TestNodeStore_UpdateMissing(t *testing.T) {
	s, _ := testStore(t)
	personKind(t, s)

	_, err := s.UpdateNode(context.Background(), "no-such-id", map[string]any{"name": "x"})
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))
}

func TestNodeStore_DeleteMissing(t *testing.T) {
	s, _ := testStore(t)

	err := s.DeleteNode(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))
}

func TestNodeStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s, blobs := testStore(t)
	personKind(t, s)
	require.NoError(t, s.CreateEdgeKind(ctx, edgeKindPP("knows")))

	ada := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})
	bob := mustCreateNode(t, s, "person", map[string]any{"name": "Bob"})
	_, err := s.CreateEdge(ctx, ada.ID, bob.ID, "knows")
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, bob.ID, ada.ID, "knows")
	require.NoError(t, err)

	att, err := s.CreateAttachment(ctx, ada.ID, "text/plain", "notes.txt", contentReader("hello"))
	require.NoError(t, err)
	assert.True(t, blobs.Exists(att.BlobKey))

	require.NoError(t, s.DeleteNode(ctx, ada.ID))

	// Edges touching the deleted node are gone in both directions.
	out, err := s.ListOutgoingEdges(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, out)
	in, err := s.ListIncomingEdges(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, in)

	// Attachment metadata and bytes are both gone.
	_, err = s.GetAttachment(ctx, att.ID)
	assert.True(t, rherr.IsNotFound(err))
	assert.False(t, blobs.Exists(att.BlobKey))
}
