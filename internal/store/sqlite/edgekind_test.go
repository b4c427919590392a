// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

func TestEdgeKindStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	personKind(t, s)
	noteKind(t, s)

	err := s.CreateEdgeKind(ctx, &store.EdgeKind{FromKind: "person", ToKind: "note", Relation: "wrote"})
	require.NoError(t, err)
	err = s.CreateEdgeKind(ctx, &store.EdgeKind{FromKind: "person", ToKind: "person", Relation: "knows"})
	require.NoError(t, err)

	got, err := s.GetEdgeKind(ctx, "person", "note", "wrote")
	require.NoError(t, err)
	assert.Equal(t, "wrote", got.Relation)

	all, err := s.ListEdgeKinds(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	from, err := s.ListEdgeKindsFrom(ctx, "person")
	require.NoError(t, err)
	assert.Len(t, from, 2)

	fromTo, err := s.ListEdgeKindsFromTo(ctx, "person", "note")
	require.NoError(t, err)
	require.Len(t, fromTo, 1)
	assert.Equal(t, "wrote", fromTo[0].Relation)

	err = s.DeleteEdgeKind(ctx, "person", "note", "wrote")
	require.NoError(t, err)

	_, err = s.GetEdgeKind(ctx, "person", "note", "wrote")
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))
}

func TestEdgeKindStore_CreateUnknownKind(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	personKind(t, s)

	err := s.CreateEdgeKind(ctx, &store.EdgeKind{FromKind: "person", ToKind: "ghost", Relation: "haunts"})
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))

	err = s.CreateEdgeKind(ctx, &store.EdgeKind{FromKind: "ghost", ToKind: "person", Relation: "haunts"})
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))
}

func TestEdgeKindStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	personKind(t, s)

	ek := &store.EdgeKind{FromKind: "person", ToKind: "person", Relation: "knows"}
	require.NoError(t, s.CreateEdgeKind(ctx, ek))

	err := s.CreateEdgeKind(ctx, ek)
	require.Error(t, err)
	assert.True(t, rherr.IsConflict(err))
}

func TestEdgeKindStore_DeleteMissing(t *testing.T) {
	s, _ := testStore(t)

	err := s.DeleteEdgeKind(context.Background(), "a", "b", "c")
	require.Error(t, err)
	assert.True(t, rherr.IsNotFound(err))
}

func TestEdgeKindStore_DeleteInUse(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore(t)

	personKind(t, s)
	require.NoError(t, s.CreateEdgeKind(ctx, &store.EdgeKind{FromKind: "person", ToKind: "person", Relation: "knows"}))

	ada := mustCreateNode(t, s, "person", map[string]any{"name": "Ada"})
	bob := mustCreateNode(t, s, "person", map[string]any{"name": "Bob"})
	_, err := s.CreateEdge(ctx, ada.ID, bob.ID, "knows")
	require.NoError(t, err)

	err = s.DeleteEdgeKind(ctx, "person", "person", "knows")
	require.Error(t, err)
	assert.True(t, rherr.IsInvalidOperation(err))

	// Once the edge is gone the edge kind can be removed.
	require.NoError(t, s.DeleteEdge(ctx, ada.ID, bob.ID, "knows"))
	require.NoError(t, s.DeleteEdgeKind(ctx, "person", "person", "knows"))
}
