// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/rhyolite-dev/rhyolite/internal/search"
	"github.com/rhyolite-dev/rhyolite/internal/store"
)

func (s *Server) registerRoutes() {
	// Kind endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-kind",
		Method:      http.MethodPost,
		Path:        "/kind",
		Summary:     "Register a kind",
		Tags:        []string{"kinds"},
	}, s.handleCreateKind)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-kind",
		Method:      http.MethodGet,
		Path:        "/kind/{name}",
		Summary:     "Get a kind",
		Tags:        []string{"kinds"},
	}, s.handleGetKind)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-kinds",
		Method:      http.MethodGet,
		Path:        "/kinds",
		Summary:     "List kinds",
		Tags:        []string{"kinds"},
	}, s.handleListKinds)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-kind",
		Method:      http.MethodDelete,
		Path:        "/kind/{name}",
		Summary:     "Delete a kind",
		Tags:        []string{"kinds"},
	}, s.handleDeleteKind)

	// Edge-kind endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-edges-kind",
		Method:      http.MethodPost,
		Path:        "/edges-kind",
		Summary:     "Permit an edge relation between two kinds",
		Tags:        []string{"edge-kinds"},
	}, s.handleCreateEdgeKind)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-edges-kinds",
		Method:      http.MethodGet,
		Path:        "/edges-kinds",
		Summary:     "List permitted edge relations",
		Tags:        []string{"edge-kinds"},
	}, s.handleListEdgeKinds)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-edges-kinds-from",
		Method:      http.MethodGet,
		Path:        "/edges-kinds/{from_kind}",
		Summary:     "List permitted edge relations from a kind",
		Tags:        []string{"edge-kinds"},
	}, s.handleListEdgeKindsFrom)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-edges-kinds-from-to",
		Method:      http.MethodGet,
		Path:        "/edges-kinds/{from_kind}/{to_kind}",
		Summary:     "List permitted edge relations between two kinds",
		Tags:        []string{"edge-kinds"},
	}, s.handleListEdgeKindsFromTo)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-edges-kind",
		Method:      http.MethodGet,
		Path:        "/edges-kinds/{from_kind}/{to_kind}/{relation}",
		Summary:     "Get a permitted edge relation",
		Tags:        []string{"edge-kinds"},
	}, s.handleGetEdgeKind)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-edges-kind",
		Method:      http.MethodDelete,
		Path:        "/edges-kind/{from_kind}/{to_kind}/{relation}",
		Summary:     "Delete a permitted edge relation",
		Tags:        []string{"edge-kinds"},
	}, s.handleDeleteEdgeKind)

	// Node endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-node",
		Method:      http.MethodPost,
		Path:        "/node",
		Summary:     "Create a node",
		Tags:        []string{"nodes"},
	}, s.handleCreateNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-node",
		Method:      http.MethodGet,
		Path:        "/node/{id}",
		Summary:     "Get a node",
		Tags:        []string{"nodes"},
	}, s.handleGetNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-node",
		Method:      http.MethodPut,
		Path:        "/node/{id}",
		Summary:     "Replace a node's payload",
		Tags:        []string{"nodes"},
	}, s.handleUpdateNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-nodes",
		Method:      http.MethodPost,
		Path:        "/nodes/search",
		Summary:     "Search nodes by payload predicates",
		Tags:        []string{"nodes"},
	}, s.handleSearchNodes)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-node",
		Method:      http.MethodDelete,
		Path:        "/node/{id}",
		Summary:     "Delete a node",
		Tags:        []string{"nodes"},
	}, s.handleDeleteNode)

	// Edge endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-edge",
		Method:      http.MethodPost,
		Path:        "/edge",
		Summary:     "Create an edge",
		Tags:        []string{"edges"},
	}, s.handleCreateEdge)

	huma.Register(s.api, huma.Operation{
		OperationID: "outgoing-edges",
		Method:      http.MethodGet,
		Path:        "/outgoing-edges/{node_id}",
		Summary:     "List edges leaving a node",
		Tags:        []string{"edges"},
	}, s.handleOutgoingEdges)

	huma.Register(s.api, huma.Operation{
		OperationID: "incoming-edges",
		Method:      http.MethodGet,
		Path:        "/incoming-edges/{node_id}",
		Summary:     "List edges arriving at a node",
		Tags:        []string{"edges"},
	}, s.handleIncomingEdges)

	huma.Register(s.api, huma.Operation{
		OperationID: "edges-between",
		Method:      http.MethodGet,
		Path:        "/edges/{from_id}/{to_id}",
		Summary:     "List edges between two nodes",
		Tags:        []string{"edges"},
	}, s.handleEdgesBetween)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-edge",
		Method:      http.MethodDelete,
		Path:        "/edge/{from_id}/{to_id}/{relation}",
		Summary:     "Delete an edge",
		Tags:        []string{"edges"},
	}, s.handleDeleteEdge)
}

// --- Wire types ---

// KindBody is the wire representation of a kind.
type KindBody struct {
	Name   string         `json:"name" minLength:"1" doc:"Kind name"`
	Schema map[string]any `json:"schema" doc:"JSON Schema the kind's payloads must satisfy"`
}

// EdgeKindBody is the wire representation of a permitted edge relation.
type EdgeKindBody struct {
	FromKind string `json:"from_kind" minLength:"1"`
	ToKind   string `json:"to_kind" minLength:"1"`
	Relation string `json:"relation" minLength:"1"`
}

// NodeBody is the wire representation of a node.
type NodeBody struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// EdgeBody is the wire representation of an edge.
type EdgeBody struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Relation  string    `json:"relation"`
	CreatedAt time.Time `json:"created_at"`
}

// okBody acknowledges a delete.
type okBody struct {
	OK bool `json:"ok"`
}

func nodeBody(n *store.Node) NodeBody {
	return NodeBody{
		ID:        n.ID,
		Kind:      n.Kind,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func edgeBody(e *store.Edge) EdgeBody {
	return EdgeBody{
		FromID:    e.FromID,
		ToID:      e.ToID,
		Relation:  e.Relation,
		CreatedAt: e.CreatedAt,
	}
}

func edgeKindBody(ek *store.EdgeKind) EdgeKindBody {
	return EdgeKindBody{FromKind: ek.FromKind, ToKind: ek.ToKind, Relation: ek.Relation}
}

// --- Kind handlers ---

type createKindInput struct {
	Body KindBody
}
type kindOutput struct {
	Body KindBody
}

func (s *Server) handleCreateKind(ctx context.Context, input *createKindInput) (*kindOutput, error) {
	kind := &store.Kind{Name: input.Body.Name, Schema: input.Body.Schema}
	if err := s.stores.CreateKind(ctx, kind); err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &kindOutput{Body: KindBody{Name: kind.Name, Schema: kind.Schema}}, nil
}

type kindNameInput struct {
	Name string `path:"name"`
}

func (s *Server) handleGetKind(ctx context.Context, input *kindNameInput) (*kindOutput, error) {
	kind, err := s.stores.GetKind(ctx, input.Name)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &kindOutput{Body: KindBody{Name: kind.Name, Schema: kind.Schema}}, nil
}

type listKindsOutput struct {
	Body []KindBody
}

func (s *Server) handleListKinds(ctx context.Context, _ *struct{}) (*listKindsOutput, error) {
	kinds, err := s.stores.ListKinds(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	out := &listKindsOutput{Body: []KindBody{}}
	for _, k := range kinds {
		out.Body = append(out.Body, KindBody{Name: k.Name, Schema: k.Schema})
	}
	return out, nil
}

type okOutput struct {
	Body okBody
}

func (s *Server) handleDeleteKind(ctx context.Context, input *kindNameInput) (*okOutput, error) {
	if err := s.stores.DeleteKind(ctx, input.Name); err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &okOutput{Body: okBody{OK: true}}, nil
}

// --- Edge-kind handlers ---

type createEdgeKindInput struct {
	Body EdgeKindBody
}
type edgeKindOutput struct {
	Body EdgeKindBody
}

func (s *Server) handleCreateEdgeKind(ctx context.Context, input *createEdgeKindInput) (*edgeKindOutput, error) {
	ek := &store.EdgeKind{
		FromKind: input.Body.FromKind,
		ToKind:   input.Body.ToKind,
		Relation: input.Body.Relation,
	}
	if err := s.stores.CreateEdgeKind(ctx, ek); err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &edgeKindOutput{Body: edgeKindBody(ek)}, nil
}

type listEdgeKindsOutput struct {
	Body []EdgeKindBody
}

func edgeKindList(eks []*store.EdgeKind) *listEdgeKindsOutput {
	out := &listEdgeKindsOutput{Body: []EdgeKindBody{}}
	for _, ek := range eks {
		out.Body = append(out.Body, edgeKindBody(ek))
	}
	return out
}

func (s *Server) handleListEdgeKinds(ctx context.Context, _ *struct{}) (*listEdgeKindsOutput, error) {
	eks, err := s.stores.ListEdgeKinds(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return edgeKindList(eks), nil
}

type edgeKindsFromInput struct {
	FromKind string `path:"from_kind"`
}

func (s *Server) handleListEdgeKindsFrom(ctx context.Context, input *edgeKindsFromInput) (*listEdgeKindsOutput, error) {
	eks, err := s.stores.ListEdgeKindsFrom(ctx, input.FromKind)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return edgeKindList(eks), nil
}

type edgeKindsFromToInput struct {
	FromKind string `path:"from_kind"`
	ToKind   string `path:"to_kind"`
}

func (s *Server) handleListEdgeKindsFromTo(ctx context.Context, input *edgeKindsFromToInput) (*listEdgeKindsOutput, error) {
	eks, err := s.stores.ListEdgeKindsFromTo(ctx, input.FromKind, input.ToKind)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return edgeKindList(eks), nil
}

type edgeKindKeyInput struct {
	FromKind string `path:"from_kind"`
	ToKind   string `path:"to_kind"`
	Relation string `path:"relation"`
}

func (s *Server) handleGetEdgeKind(ctx context.Context, input *edgeKindKeyInput) (*edgeKindOutput, error) {
	ek, err := s.stores.GetEdgeKind(ctx, input.FromKind, input.ToKind, input.Relation)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &edgeKindOutput{Body: edgeKindBody(ek)}, nil
}

func (s *Server) handleDeleteEdgeKind(ctx context.Context, input *edgeKindKeyInput) (*okOutput, error) {
	if err := s.stores.DeleteEdgeKind(ctx, input.FromKind, input.ToKind, input.Relation); err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &okOutput{Body: okBody{OK: true}}, nil
}

// --- Node handlers ---

type createNodeInput struct {
	Body struct {
		Kind    string         `json:"kind" minLength:"1" doc:"Kind of the node"`
		Payload map[string]any `json:"payload,omitempty" doc:"Node payload, validated against the kind's schema"`
	}
}
type nodeOutput struct {
	Body NodeBody
}

func (s *Server) handleCreateNode(ctx context.Context, input *createNodeInput) (*nodeOutput, error) {
	node, err := s.stores.CreateNode(ctx, input.Body.Kind, input.Body.Payload)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &nodeOutput{Body: nodeBody(node)}, nil
}

type nodeIDInput struct {
	ID string `path:"id"`
}

func (s *Server) handleGetNode(ctx context.Context, input *nodeIDInput) (*nodeOutput, error) {
	node, err := s.stores.GetNode(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &nodeOutput{Body: nodeBody(node)}, nil
}

type updateNodeInput struct {
	ID   string `path:"id"`
	Body struct {
		Payload map[string]any `json:"payload" doc:"Replacement payload"`
	}
}

func (s *Server) handleUpdateNode(ctx context.Context, input *updateNodeInput) (*nodeOutput, error) {
	node, err := s.stores.UpdateNode(ctx, input.ID, input.Body.Payload)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &nodeOutput{Body: nodeBody(node)}, nil
}

type searchNodesInput struct {
	Body struct {
		Kinds []string       `json:"kinds,omitempty" doc:"Kinds to search; all kinds when omitted"`
		Query map[string]any `json:"query,omitempty" doc:"Dot-notation payload predicates, ANDed together"`
		Limit *int           `json:"limit,omitempty" minimum:"0" doc:"Maximum results; unlimited when omitted"`
	}
}
type searchNodesOutput struct {
	Body []NodeBody
}

func (s *Server) handleSearchNodes(ctx context.Context, input *searchNodesInput) (*searchNodesOutput, error) {
	nodes, err := s.stores.SearchNodes(ctx, search.Query{
		Kinds: input.Body.Kinds,
		Where: input.Body.Query,
		Limit: input.Body.Limit,
	})
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	out := &searchNodesOutput{Body: []NodeBody{}}
	for _, n := range nodes {
		out.Body = append(out.Body, nodeBody(n))
	}
	return out, nil
}

func (s *Server) handleDeleteNode(ctx context.Context, input *nodeIDInput) (*okOutput, error) {
	if err := s.stores.DeleteNode(ctx, input.ID); err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &okOutput{Body: okBody{OK: true}}, nil
}

// --- Edge handlers ---

type createEdgeInput struct {
	Body struct {
		FromID   string `json:"from_id" minLength:"1"`
		ToID     string `json:"to_id" minLength:"1"`
		Relation string `json:"relation" minLength:"1"`
	}
}
type edgeOutput struct {
	Body EdgeBody
}

func (s *Server) handleCreateEdge(ctx context.Context, input *createEdgeInput) (*edgeOutput, error) {
	edge, err := s.stores.CreateEdge(ctx, input.Body.FromID, input.Body.ToID, input.Body.Relation)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &edgeOutput{Body: edgeBody(edge)}, nil
}

type edgeNodeIDInput struct {
	NodeID string `path:"node_id"`
}
type listEdgesOutput struct {
	Body []EdgeBody
}

func edgeList(edges []*store.Edge) *listEdgesOutput {
	out := &listEdgesOutput{Body: []EdgeBody{}}
	for _, e := range edges {
		out.Body = append(out.Body, edgeBody(e))
	}
	return out
}

func (s *Server) handleOutgoingEdges(ctx context.Context, input *edgeNodeIDInput) (*listEdgesOutput, error) {
	edges, err := s.stores.ListOutgoingEdges(ctx, input.NodeID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return edgeList(edges), nil
}

func (s *Server) handleIncomingEdges(ctx context.Context, input *edgeNodeIDInput) (*listEdgesOutput, error) {
	edges, err := s.stores.ListIncomingEdges(ctx, input.NodeID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return edgeList(edges), nil
}

type edgesBetweenInput struct {
	FromID string `path:"from_id"`
	ToID   string `path:"to_id"`
}

func (s *Server) handleEdgesBetween(ctx context.Context, input *edgesBetweenInput) (*listEdgesOutput, error) {
	edges, err := s.stores.ListEdgesBetween(ctx, input.FromID, input.ToID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	return edgeList(edges), nil
}

type edgeKeyInput struct {
	FromID   string `path:"from_id"`
	ToID     string `path:"to_id"`
	Relation string `path:"relation"`
}

func (s *Server) handleDeleteEdge(ctx context.Context, input *edgeKeyInput) (*okOutput, error) {
	if err := s.stores.DeleteEdge(ctx, input.FromID, input.ToID, input.Relation); err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &okOutput{Body: okBody{OK: true}}, nil
}
