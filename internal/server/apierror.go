// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// apiError translates a coded store error into the matching huma status
// error. Validation violations ride along as structured error details.
// Anything mapping to a 5xx is logged and replaced with a generic
// message so internals never leak to clients.
func (s *Server) apiError(ctx context.Context, err error) error {
	status := rherr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed", "error", err)
		return huma.NewError(status, "internal error")
	}

	var details []error
	for _, v := range rherr.ValidationErrorsOf(err) {
		details = append(details, &huma.ErrorDetail{
			Message:  v.Message,
			Location: v.InstancePath,
		})
	}
	return huma.NewError(status, err.Error(), details...)
}
