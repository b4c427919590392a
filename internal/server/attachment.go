// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// AttachmentBody is the wire representation of attachment metadata.
type AttachmentBody struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"node_id"`
	MimeType  string    `json:"mime_type"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func attachmentBody(a *store.Attachment) AttachmentBody {
	return AttachmentBody{
		ID:        a.ID,
		NodeID:    a.NodeID,
		MimeType:  a.MimeType,
		Name:      a.Name,
		CreatedAt: a.CreatedAt,
	}
}

func (s *Server) registerAttachmentRoutes() {
	// Metadata operations go through huma as usual.
	huma.Register(s.api, huma.Operation{
		OperationID: "list-attachments",
		Method:      http.MethodGet,
		Path:        "/attachments/{node_id}",
		Summary:     "List a node's attachments",
		Tags:        []string{"attachments"},
	}, s.handleListAttachments)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-attachment",
		Method:      http.MethodDelete,
		Path:        "/attachment/{id}",
		Summary:     "Delete an attachment",
		Tags:        []string{"attachments"},
	}, s.handleDeleteAttachment)

	// Upload and download move raw bytes, so they bypass huma's handler
	// signature. The chi routes do the work; the OpenAPI entries below
	// keep the spec complete.
	s.router.Post("/attachment", s.handleUploadAttachment)
	s.router.Get("/attachment/{id}", s.handleDownloadAttachment)

	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "create-attachment",
		Method:      http.MethodPost,
		Path:        "/attachment",
		Summary:     "Upload an attachment",
		Description: "Multipart upload of attachment bytes for a node. The optional 'name' query parameter overrides the display name; otherwise the uploaded filename is used.",
		Tags:        []string{"attachments"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"multipart/form-data": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"node_id", "file"},
						Properties: map[string]*huma.Schema{
							"node_id": {Type: "string", Description: "Owning node"},
							"file":    {Type: "string", Format: "binary", Description: "Attachment content"},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {Description: "Attachment metadata"},
			"404": {Description: "Node not found"},
			"409": {Description: "Attachment already exists"},
		},
	})

	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "get-attachment",
		Method:      http.MethodGet,
		Path:        "/attachment/{id}",
		Summary:     "Download an attachment",
		Tags:        []string{"attachments"},
		Responses: map[string]*huma.Response{
			"200": {Description: "Attachment bytes with the stored mime type"},
			"404": {Description: "Attachment or its bytes missing"},
		},
	})
}

type listAttachmentsInput struct {
	NodeID string `path:"node_id"`
}
type listAttachmentsOutput struct {
	Body []AttachmentBody
}

func (s *Server) handleListAttachments(ctx context.Context, input *listAttachmentsInput) (*listAttachmentsOutput, error) {
	atts, err := s.stores.ListAttachments(ctx, input.NodeID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}
	out := &listAttachmentsOutput{Body: []AttachmentBody{}}
	for _, a := range atts {
		out.Body = append(out.Body, attachmentBody(a))
	}
	return out, nil
}

type attachmentIDInput struct {
	ID string `path:"id"`
}

func (s *Server) handleDeleteAttachment(ctx context.Context, input *attachmentIDInput) (*okOutput, error) {
	if err := s.stores.DeleteAttachment(ctx, input.ID); err != nil {
		return nil, s.apiError(ctx, err)
	}
	return &okOutput{Body: okBody{OK: true}}, nil
}

const maxUploadMemory = 32 << 20 // 32 MiB in memory, larger spills to disk

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	nodeID := r.FormValue("node_id")
	if nodeID == "" {
		writeError(w, http.StatusBadRequest, "node_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	// Explicit name wins, then the uploaded filename's base.
	name := r.URL.Query().Get("name")
	if name == "" && header.Filename != "" {
		name = filepath.Base(header.Filename)
	}

	att, err := s.stores.CreateAttachment(r.Context(), nodeID, mimeType, name, file)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(attachmentBody(att)); err != nil {
		s.logger.ErrorContext(r.Context(), "encoding attachment response", "error", err)
	}
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	att, err := s.stores.GetAttachment(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	rc, err := s.blobs.Open(att.BlobKey)
	if rherr.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "attachment file missing")
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", att.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.ID))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.WarnContext(r.Context(), "streaming attachment", "attachment_id", id, "error", err)
	}
}

// writeStoreError maps a coded error onto a raw response the same way
// apiError does for huma handlers.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := rherr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
