// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := rherr.New(
		rherr.CodeNodeKindUnknown,
		"unknown kind",
		rherr.FieldKind("person"),
		rherr.Field("operation", "create_node"),
	)

	require.Error(t, err)
	assert.Equal(t, rherr.CodeNodeKindUnknown, rherr.CodeOf(err))
	assert.True(t, rherr.HasCode(err, rherr.CodeNodeKindUnknown))

	fields := rherr.FieldsOf(err)
	assert.Equal(t, "person", fields["kind"])
	assert.Equal(t, "create_node", fields["operation"])
}

func TestNewWithNoFields(t *testing.T) {
	err := rherr.New(rherr.CodeStoreDatabaseFailure, "connection lost")
	require.Error(t, err)
	assert.Equal(t, rherr.CodeStoreDatabaseFailure, rherr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection lost")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := rherr.Errorf(rherr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, rherr.CodeStoreDatabaseFailure, rherr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := rherr.Wrap(
		root,
		rherr.CodeNodeNotFound,
		"loading node",
		rherr.FieldNodeID("node-42"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, rherr.CodeNodeNotFound, rherr.CodeOf(err))
	assert.True(t, rherr.IsNotFound(err))
	assert.Equal(t, "node-42", rherr.FieldsOf(err)["node_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, rherr.Wrap(nil, rherr.CodeServerInternalFailure, "ignored"))
}

func TestWrapfNilReturnsNil(t *testing.T) {
	assert.NoError(t, rherr.Wrapf(nil, rherr.CodeServerInternalFailure, "ignored %s", "arg"))
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := rherr.New(rherr.CodeEdgeNotAllowed, "relation not allowed")
	withCtx := rherr.With(base, rherr.FieldRelation("link"))

	require.Error(t, withCtx)
	assert.Equal(t, rherr.CodeEdgeNotAllowed, rherr.CodeOf(withCtx))
	assert.Equal(t, "link", rherr.FieldsOf(withCtx)["relation"])
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name  string
		code  rherr.Code
		check func(error) bool
	}{
		{"kind not found", rherr.CodeKindNotFound, rherr.IsNotFound},
		{"edge kind not found", rherr.CodeEdgeKindNotFound, rherr.IsNotFound},
		{"node not found", rherr.CodeNodeNotFound, rherr.IsNotFound},
		{"edge not found", rherr.CodeEdgeNotFound, rherr.IsNotFound},
		{"attachment not found", rherr.CodeAttachmentNotFound, rherr.IsNotFound},
		{"blob not found", rherr.CodeBlobNotFound, rherr.IsNotFound},
		{"kind conflict", rherr.CodeKindConflict, rherr.IsConflict},
		{"edge conflict", rherr.CodeEdgeConflict, rherr.IsConflict},
		{"attachment conflict", rherr.CodeAttachmentConflict, rherr.IsConflict},
		{"validation failed", rherr.CodeNodeValidationFailed, rherr.IsValidationFailed},
		{"unknown kind is invalid op", rherr.CodeNodeKindUnknown, rherr.IsInvalidOperation},
		{"kind in use is invalid op", rherr.CodeKindInUse, rherr.IsInvalidOperation},
		{"edge kind in use is invalid op", rherr.CodeEdgeKindInUse, rherr.IsInvalidOperation},
		{"relation not allowed is invalid op", rherr.CodeEdgeNotAllowed, rherr.IsInvalidOperation},
		{"endpoint missing is invalid op", rherr.CodeEdgeEndpointMissing, rherr.IsInvalidOperation},
		{"search query invalid is invalid op", rherr.CodeSearchQueryInvalid, rherr.IsInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rherr.New(tt.code, "boom")
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassifiersRejectOtherReasons(t *testing.T) {
	dbErr := rherr.New(rherr.CodeStoreDatabaseFailure, "io error")
	assert.False(t, rherr.IsNotFound(dbErr))
	assert.False(t, rherr.IsConflict(dbErr))
	assert.False(t, rherr.IsValidationFailed(dbErr))
	assert.False(t, rherr.IsInvalidOperation(dbErr))

	assert.False(t, rherr.IsNotFound(nil))
	assert.False(t, rherr.IsNotFound(stderrors.New("plain")))
}

// ---------------------------------------------------------------------------
// Validation error payload
// ---------------------------------------------------------------------------

func TestValidationErrorsRoundTrip(t *testing.T) {
	list := []rherr.ValidationError{
		{Message: "missing property 'active'", InstancePath: "", SchemaPath: "/required"},
	}

	base := rherr.New(rherr.CodeNodeValidationFailed, "payload does not match schema")
	err := rherr.WithValidationErrors(base, list)

	require.Error(t, err)
	assert.True(t, rherr.IsValidationFailed(err))
	assert.Equal(t, list, rherr.ValidationErrorsOf(err))
}

func TestValidationErrorsOfPlainError(t *testing.T) {
	assert.Nil(t, rherr.ValidationErrorsOf(stderrors.New("plain")))
	assert.Nil(t, rherr.ValidationErrorsOf(nil))
}

// ---------------------------------------------------------------------------
// HTTP status mapping
// ---------------------------------------------------------------------------

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code rherr.Code
		want int
	}{
		{rherr.CodeNodeNotFound, http.StatusNotFound},
		{rherr.CodeKindConflict, http.StatusConflict},
		{rherr.CodeEdgeConflict, http.StatusConflict},
		{rherr.CodeNodeValidationFailed, http.StatusBadRequest},
		{rherr.CodeNodeKindUnknown, http.StatusBadRequest},
		{rherr.CodeKindInUse, http.StatusBadRequest},
		{rherr.CodeEdgeNotAllowed, http.StatusBadRequest},
		{rherr.CodeServerNotReady, http.StatusServiceUnavailable},
		{rherr.CodeStoreDatabaseFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, rherr.HTTPStatus(rherr.New(tt.code, "x")))
		})
	}
}

func TestHTTPStatusUncodedError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, rherr.HTTPStatus(stderrors.New("plain")))
}
