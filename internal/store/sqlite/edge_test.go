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

func TestEdgeStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)
	require.NoError(t, s.CreateEdgeKind(ctx, edgeKindPP("knows")))
	require.NoError(t, s.CreateEdgeKind(ctx, edgeKindPP("mentors")))

	ada := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})
	bob := mustCreateNode(t, s, "person", map[string]any{"name": "Bob"})

	edge, err := s.CreateEdge(ctx, ada.ID, bob.ID, "knows")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, edge.FromID)
	assert.Equal(t, bob.ID, edge.ToID)
	assert.False(t, edge.CreatedAt.IsZero())

	_, err = s.CreateEdge(ctx, ada.ID, bob.ID, "mentors")
	require.NoError(t, err)

	out, err := s.ListOutgoingEdges(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	// Ordered by target then relation.
	assert.Equal(t, "knows", out[0].Relation)
	assert.Equal(t, "mentors", out[1].Relation)

	in, err := s.ListIncomingEdges(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, in, 2)

	between, err := s.ListEdgesBetween(ctx, ada.ID, bob.ID)
	require.NoError(t, err)
	assert.Len(t, between, 2)

	reverse, err := s.ListEdgesBetween(ctx, bob.ID, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, reverse)
}

func TestEdgeStore_CreateMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)
	require.NoError(t, s.CreateEdgeKind(ctx, edgeKindPP("knows")))

	ada := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})

	_, err := s.CreateEdge(ctx, ada.ID, "no-such-id", "knows")
	require.Error(t, err)
	assert.True(t, rherr.IsInvalidOperation(err))

	_, err = s.CreateEdge(ctx, "no-such-id", ada.ID, "knows")
	require.Error(t, err)
	assert.True(t, rherr.IsInvalidOperation(err))
}

func TestEdgeStore_CreateRelationNotAllowed(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)

	ada := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})
	bob := mustCreateNode(t, s, "person", map[string]any{"name": "Bob"})

	_, err := s.CreateEdge(ctx, ada.ID, bob.ID, "knows")
	require.Error(t, err)
	assert.True(t, rherr.IsInvalidOperation(err))
}

func TestEdgeStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)
	require.NoError(t, s.CreateEdgeKind(ctx, edgeKindPP("knows")))

	ada := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})
	bob := mustCreateNode(t, s, "person", map[string]any{"name": "Bob"})

	_, err := s.CreateEdge(ctx, ada.ID, bob.ID, "knows")
	require.NoError(t, err)

	_, err = s.CreateEdge(ctx, ada.ID, bob.ID, "knows")
	require.Error(t, err)
	assert.True(t, rherr.IsConflict(err))
}

func TestEdgeStore_ListMissingNode(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	_, err := s.ListOutgoingEdges(ctx, "no-such-id")
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))

	_, err = s.ListIncomingEdges(ctx, "no-such-id")
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))

	// Between tolerates missing nodes and reads as no edges.
	between, err := s.ListEdgesBetween(ctx, "no-such-id", "also-missing")
	require.NoError(t, err)
	assert.Empty(t, between)
}

func TestEdgeStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)
	personKind(t, s)
	require.NoError(t, s.CreateEdgeKind(ctx, edgeKindPP("knows")))

	ada := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})
	bob := mustCreateNode(t, s, "person", map[string]any{"name": "Bob"})
	_, err := s.CreateEdge(ctx, ada.ID, bob.ID, "knows")
	require.NoError(t, err)

	require.NoError(t, s.DeleteEdge(ctx, ada.ID, bob.ID, "knows"))

	err = s.DeleteEdge(ctx, ada.ID, bob.ID, "knows")
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))

	// Nodes are untouched by edge deletion.
	_, err = s.GetNode(ctx, ada.ID)
	require.NoError(t, err)
}
