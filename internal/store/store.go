// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

// Package store defines the domain model and persistence interfaces of
// the schema-governed property-graph store, plus the backend factory
// registry. Implementations live in subpackages (sqlite).
package store

import (
	"context"
	"io"

	"github.com/rhyolite-dev/rhyolite/internal/search"
)

// KindStore manages the kind registry. Kind names are unique; a kind
// cannot be deleted while nodes reference it.
type KindStore interface {
	CreateKind(ctx context.Context, kind *Kind) error
	GetKind(ctx context.Context, name string) (*Kind, error)
	// ListKinds returns all kinds ordered by name.
	ListKinds(ctx context.Context) ([]*Kind, error)
	DeleteKind(ctx context.Context, name string) error
}

// EdgeKindStore manages the edge-kind registry: the permitted
// (from_kind, to_kind, relation) triples. An edge-kind cannot be
// deleted while edges instantiate it.
type EdgeKindStore interface {
	CreateEdgeKind(ctx context.Context, ek *EdgeKind) error
	GetEdgeKind(ctx context.Context, fromKind, toKind, relation string) (*EdgeKind, error)
	// List variants order by the composite key fields.
	ListEdgeKinds(ctx context.Context) ([]*EdgeKind, error)
	ListEdgeKindsFrom(ctx context.Context, fromKind string) ([]*EdgeKind, error)
	ListEdgeKindsFromTo(ctx context.Context, fromKind, toKind string) ([]*EdgeKind, error)
	DeleteEdgeKind(ctx context.Context, fromKind, toKind, relation string) error
}

// NodeStore manages node lifecycle. Every write validates the payload
// against the node kind's current schema.
type NodeStore interface {
	CreateNode(ctx context.Context, kind string, payload map[string]any) (*Node, error)
	GetNode(ctx context.Context, id string) (*Node, error)
	UpdateNode(ctx context.Context, id string, payload map[string]any) (*Node, error)
	// DeleteNode cascades to the node's edges and attachments; attachment
	// bytes are removed from the blob store best-effort.
	DeleteNode(ctx context.Context, id string) error
	// SearchNodes evaluates a compiled predicate query over node
	// payloads. Results are deterministically ordered.
	SearchNodes(ctx context.Context, q search.Query) ([]*Node, error)
}

// EdgeStore manages edges between nodes. Creation requires both
// endpoints to exist and a matching edge-kind for their kinds and the
// relation label.
type EdgeStore interface {
	CreateEdge(ctx context.Context, fromID, toID, relation string) (*Edge, error)
	ListOutgoingEdges(ctx context.Context, nodeID string) ([]*Edge, error)
	ListIncomingEdges(ctx context.Context, nodeID string) ([]*Edge, error)
	// ListEdgesBetween does not require either node to exist: missing
	// nodes read as "no edges", not as a bad request.
	ListEdgesBetween(ctx context.Context, fromID, toID string) ([]*Edge, error)
	DeleteEdge(ctx context.Context, fromID, toID, relation string) error
}

// AttachmentStore manages attachment metadata and coordinates with the
// blob store for the physical bytes.
type AttachmentStore interface {
	CreateAttachment(ctx context.Context, nodeID, mimeType, name string, content io.Reader) (*Attachment, error)
	GetAttachment(ctx context.Context, id string) (*Attachment, error)
	ListAttachments(ctx context.Context, nodeID string) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}

// Stores bundles the five stores of one graph database.
type Stores interface {
	KindStore
	EdgeKindStore
	NodeStore
	EdgeStore
	AttachmentStore

	// Ping reports whether the underlying database is reachable.
	Ping(ctx context.Context) error
	Close() error
}
