// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhyolite-dev/rhyolite/internal/blob"
	"github.com/rhyolite-dev/rhyolite/internal/schema"
	"github.com/rhyolite-dev/rhyolite/internal/server"
	"github.com/rhyolite-dev/rhyolite/internal/store"
	"github.com/rhyolite-dev/rhyolite/internal/store/sqlite"
)

// newTestServer wires a server onto a fresh sqlite store and temp blob
// directory.
func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	dir := t.TempDir()

	blobs, err := blob.NewFileStore(filepath.Join(dir, "attachments"))
	require.NoError(t, err)

	st, err := sqlite.New(filepath.Join(dir, "graph.db"), store.Deps{
		Validator: schema.NewValidator(),
		Blobs:     blobs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, st, blobs)
	require.NoError(t, err)
	return srv
}

// doJSON performs a JSON request against the server handler.
func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// decodeJSON unmarshals a response body into out.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// createPersonKind registers the person kind over HTTP.
func createPersonKind(t *testing.T, srv *server.Server) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/kind", map[string]any{
		"name": "person",
		"schema": map[string]any{
			"type":     "object",
			"required": []any{"name"},
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// createNode creates a node over HTTP and returns its id.
func createNode(t *testing.T, srv *server.Server, kind string, payload map[string]any) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/node", map[string]any{
		"kind":    kind,
		"payload": payload,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var node server.NodeBody
	decodeJSON(t, rec, &node)
	require.NotEmpty(t, node.ID)
	return node.ID
}
