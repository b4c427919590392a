// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

// Package schema wraps a JSON Schema Draft 2020-12 engine behind the
// validation capability the node store consumes. Kind schemas are data,
// registered at runtime; they are compiled per call and never turned
// into static types.
package schema

import (
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// schemaURL names the in-memory resource a kind schema is compiled under.
const schemaURL = "schema.json"

// ValidationError is one structured schema violation, shared with the
// error package so violation lists can ride on coded errors.
type ValidationError = rherr.ValidationError

// render is the stable string form used for deterministic ordering.
func render(e ValidationError) string {
	return e.Message + "\x00" + e.InstancePath + "\x00" + e.SchemaPath
}

// Validator validates JSON payloads against JSON Schema documents.
type Validator struct {
	printer *message.Printer
}

// NewValidator returns a Validator with English keyword messages.
func NewValidator() *Validator {
	return &Validator{printer: message.NewPrinter(language.English)}
}

// CheckSchema compiles doc and reports whether it is itself a valid
// Draft 2020-12 schema document. Called at kind registration so a broken
// schema fails there rather than at the first node write.
func (v *Validator) CheckSchema(doc map[string]any) error {
	if _, err := v.compile(doc); err != nil {
		return err
	}
	return nil
}

// Validate checks payload against schemaDoc and returns the structured
// violation list, empty when the payload conforms. The list is stably
// sorted by string rendering: validating the same (schema, payload) pair
// twice yields identical lists in identical order.
func (v *Validator) Validate(schemaDoc map[string]any, payload map[string]any) ([]ValidationError, error) {
	sch, err := v.compile(schemaDoc)
	if err != nil {
		return nil, err
	}

	// The engine wants plain decoded JSON; a nil payload validates as {}.
	var instance any = map[string]any{}
	if payload != nil {
		instance = toJSONValue(payload)
	}

	err = sch.Validate(instance)
	if err == nil {
		return nil, nil
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, rherr.Wrapf(err, rherr.CodeSchemaValidateFailure, "validating payload")
	}

	var list []ValidationError
	v.flatten(verr, &list)

	sort.Slice(list, func(i, j int) bool {
		return render(list[i]) < render(list[j])
	})

	return list, nil
}

func (v *Validator) compile(doc map[string]any) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)

	if err := compiler.AddResource(schemaURL, toJSONValue(doc)); err != nil {
		return nil, rherr.Wrapf(err, rherr.CodeSchemaInvalid, "adding schema resource")
	}

	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, rherr.Wrapf(err, rherr.CodeSchemaInvalid, "compiling schema")
	}
	return sch, nil
}

// flatten walks the engine's cause tree and collects leaf violations.
func (v *Validator) flatten(err *jsonschema.ValidationError, out *[]ValidationError) {
	if len(err.Causes) == 0 {
		*out = append(*out, ValidationError{
			Message:      err.ErrorKind.LocalizedString(v.printer),
			InstancePath: pointer(err.InstanceLocation),
			SchemaPath:   schemaPointer(err),
		})
		return
	}
	for _, cause := range err.Causes {
		v.flatten(cause, out)
	}
}

// pointer renders location segments as a JSON pointer ("" for the root).
func pointer(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteByte('/')
		sb.WriteString(escapePointerSegment(seg))
	}
	return sb.String()
}

// schemaPointer renders the keyword location within the schema document,
// prefixed with the subschema fragment when the violation occurred inside
// a referenced subschema.
func schemaPointer(err *jsonschema.ValidationError) string {
	frag := ""
	if idx := strings.IndexByte(err.SchemaURL, '#'); idx >= 0 {
		frag = err.SchemaURL[idx+1:]
	}
	return frag + pointer(err.ErrorKind.KeywordPath())
}

func escapePointerSegment(seg string) string {
	seg = strings.ReplaceAll(seg, "~", "~0")
	return strings.ReplaceAll(seg, "/", "~1")
}

// toJSONValue normalizes a decoded Go value into the shapes the engine
// expects (maps, slices, strings, float64/int, bool, nil). Values coming
// out of encoding/json already have this shape; the walk only guards
// against aliased map/slice types from callers.
func toJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONValue(item)
		}
		return out
	default:
		return val
	}
}
