// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package sqlite_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhyolite-dev/rhyolite/internal/blob"
	"github.com/rhyolite-dev/rhyolite/internal/schema"
	"github.com/rhyolite-dev/rhyolite/internal/store"
	"github.com/rhyolite-dev/rhyolite/internal/store/sqlite"
)

// testDir creates a temp directory for a test with cleanup.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "rhyolite-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testStore opens a fresh graph store backed by a temp database and a
// temp blob directory.
func testStore(t *testing.T) (*sqlite.Store, blob.Store) {
	t.Helper()
	dir := testDir(t)

	blobs, err := blob.NewFileStore(filepath.Join(dir, "attachments"))
	require.NoError(t, err)

	s, err := sqlite.New(filepath.Join(dir, "graph.db"), store.Deps{
		Validator: schema.NewValidator(),
		Blobs:     blobs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, blobs
}

// personKind registers the "person" kind used across tests: a required
// string name plus an optional integer age.
func personKind(t *testing.T, s *sqlite.Store) {
	t.Helper()
	err := s.CreateKind(context.Background(), &store.Kind{
		Name: "person",
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"name"},
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
				"age":  map[string]any{"type": "integer"},
			},
		},
	})
	require.NoError(t, err)
}

// noteKind registers a free-form "note" kind with no constraints.
func noteKind(t *testing.T, s *sqlite.Store) {
	t.Helper()
	err := s.CreateKind(context.Background(), &store.Kind{
		Name:   "note",
		Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
}

// edgeKindPP builds a person-to-person edge kind with the relation.
func edgeKindPP(relation string) *store.EdgeKind {
	return &store.EdgeKind{FromKind: "person", ToKind: "person", Relation: relation}
}

// contentReader wraps a string as attachment content.
func contentReader(s string) io.Reader {
	return strings.NewReader(s)
}

// mustCreateNode creates a node and fails the test on error.
func mustCreateNode(t *testing.T, s *sqlite.Store, kind string, payload map[string]any) *store.Node {
	t.Helper()
	node, err := s.CreateNode(context.Background(), kind, payload)
	require.NoError(t, err)
	return node
}
