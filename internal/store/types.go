// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package store

import "time"

// --- Kind types ---

// Kind is a named type definition for nodes. Schema is an arbitrary
// JSON Schema document governing node payloads; it is treated as opaque
// data and never turned into static types. Kinds are immutable once
// created.
type Kind struct {
	Name   string
	Schema map[string]any
}

// --- Edge-kind types ---

// EdgeKind permits the relation label for edges whose source node has
// kind FromKind and target node has kind ToKind. Identity is the full
// triple.
type EdgeKind struct {
	FromKind string
	ToKind   string
	Relation string
}

// --- Node types ---

// Node is a typed entity instance. Payload always validates against the
// kind's schema; Kind is immutable after creation.
type Node struct {
	ID        string
	Kind      string
	Payload   map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// --- Edge types ---

// Edge is a labeled, directed relationship between two nodes. Identity
// is (FromID, ToID, Relation); edges are immutable once created.
type Edge struct {
	FromID    string
	ToID      string
	Relation  string
	CreatedAt time.Time
}

// --- Attachment types ---

// Attachment is binary-blob metadata owned by a node. BlobKey is the
// unique content-location key resolving the physical bytes in the blob
// store.
type Attachment struct {
	ID        string
	NodeID    string
	MimeType  string
	Name      string
	BlobKey   string
	CreatedAt time.Time
}
