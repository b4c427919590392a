// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

// Package blob provides the byte-store capability backing attachments:
// opaque binary blobs addressed by content-location keys, stored outside
// the relational metadata.
package blob

import "io"

// Store persists opaque blobs under unique keys. Delete is best-effort
// at the call sites that use it for cascade cleanup: failures are logged
// by the caller, never propagated to the metadata operation.
type Store interface {
	// Put writes the blob read from r under key, replacing any previous
	// content at that key.
	Put(key string, r io.Reader) error
	// Open returns a reader over the blob at key. A missing blob yields
	// an error classified as not found.
	Open(key string) (io.ReadCloser, error)
	// Exists reports whether bytes are present at key.
	Exists(key string) bool
	// Delete removes the blob at key. Deleting an absent key is not an
	// error.
	Delete(key string) error
}
