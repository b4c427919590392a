// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

// Package errors defines coded, recoverable errors for the graph store.
// Codes are dot-separated paths whose last segment classifies the error
// (not_found, conflict, validation_failed, ...); handlers map that
// classification to an HTTP status without inspecting individual codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeKindNotFound Code = "store.kind.not_found"
	CodeKindConflict Code = "store.kind.conflict"
	CodeKindInUse    Code = "store.kind.delete.in_use"

	CodeEdgeKindNotFound Code = "store.edge_kind.not_found"
	CodeEdgeKindConflict Code = "store.edge_kind.conflict"
	CodeEdgeKindInUse    Code = "store.edge_kind.delete.in_use"

	CodeNodeNotFound         Code = "store.node.not_found"
	CodeNodeKindUnknown      Code = "store.node.kind.invalid"
	CodeNodeValidationFailed Code = "store.node.payload.validation_failed"

	CodeEdgeNotFound        Code = "store.edge.not_found"
	CodeEdgeConflict        Code = "store.edge.conflict"
	CodeEdgeEndpointMissing Code = "store.edge.endpoint.invalid"
	CodeEdgeNotAllowed      Code = "store.edge.relation.not_allowed"

	CodeAttachmentNotFound Code = "store.attachment.not_found"
	CodeAttachmentConflict Code = "store.attachment.conflict"

	CodeSearchQueryInvalid Code = "store.search.query.invalid"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeSchemaInvalid         Code = "schema.compile.invalid"
	CodeSchemaValidateFailure Code = "schema.validate.failure"

	CodeBlobNotFound     Code = "blob.get.not_found"
	CodeBlobWriteFailure Code = "blob.write.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerNotReady        Code = "server.health.not_ready"

	CodeCLISetupFailure Code = "cli.setup.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldKind(value string) Attr {
	return Field("kind", value)
}

func FieldNodeID(value string) Attr {
	return Field("node_id", value)
}

func FieldRelation(value string) Attr {
	return Field("relation", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsNotFound reports whether err identifies an absent entity.
func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

// IsConflict reports whether err is a uniqueness violation on create.
func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

// IsValidationFailed reports whether err carries a schema validation
// error list (see ValidationErrorsOf).
func IsValidationFailed(err error) bool {
	return reason(CodeOf(err)) == "validation_failed"
}

// IsInvalidOperation reports whether err is a referential/business rule
// violation: unknown kind, disallowed relation, delete blocked by
// existing references, malformed search query.
func IsInvalidOperation(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "in_use" || r == "not_allowed" || r == "invalid_value"
}

// validationErrorsKey is the oops context key carrying the structured
// validation error list on CodeNodeValidationFailed errors.
const validationErrorsKey = "validation_errors"

// ValidationError is one structured schema violation. InstancePath points
// into the offending payload and SchemaPath into the governing schema,
// both as JSON pointers.
type ValidationError struct {
	Message      string `json:"message"`
	InstancePath string `json:"path"`
	SchemaPath   string `json:"schema_path"`
}

// WithValidationErrors attaches a structured validation error list to err.
func WithValidationErrors(err error, list []ValidationError) error {
	if err == nil {
		return nil
	}
	return oops.Code(CodeOf(err)).With(validationErrorsKey, list).Wrap(err)
}

// ValidationErrorsOf returns the structured validation error list
// attached via WithValidationErrors, or nil.
func ValidationErrorsOf(err error) []ValidationError {
	fields := FieldsOf(err)
	if fields == nil {
		return nil
	}
	list, _ := fields[validationErrorsKey].([]ValidationError)
	return list
}

func HTTPStatus(err error) int {
	switch {
	case HasCode(err, CodeServerNotReady):
		return http.StatusServiceUnavailable
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsValidationFailed(err):
		return http.StatusBadRequest
	case IsInvalidOperation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
