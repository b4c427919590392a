// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

// Package search compiles dot-notation predicate maps into SQL
// conditions over a JSON payload column, using SQLite's json_extract as
// the path-extraction primitive.
//
// Comparison semantics per predicate value:
//   - string containing '*': case-insensitive LIKE over the text
//     rendering of the extracted value, '*' as the multi-character
//     wildcard
//   - plain string: equality against the text rendering of the
//     extracted value, so "5" matches a stored number 5
//   - bool: boolean interpretation of the extracted value, accepting
//     SQLite's 1/0 and the text forms "true"/"false"
//   - number: numeric comparison via NUMERIC casts
//   - null: matches JSON null and absent paths alike
//   - array/object: literal serialized-text equality against the
//     canonical (minified, key-sorted) JSON of the target value; this is
//     order-sensitive by design and under-matches structures whose
//     stored serialization uses a different element or key order
//
// All predicates combine with AND. Paths address object keys only;
// arrays are not traversed.
package search

import (
	"encoding/json"
	"sort"
	"strings"

	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// Query is a compiled-from-request node search.
type Query struct {
	// Kinds restricts matches to these kind names; empty means all kinds.
	Kinds []string
	// Where maps dot-notation payload paths to target values.
	Where map[string]any
	// Limit truncates the result set after ordering; nil means no
	// limit. An explicit zero yields no rows.
	Limit *int
}

// Compile translates q into a SQL condition over the nodes table and its
// bind arguments. The condition is empty when q has no filters. Predicate
// entries are compiled in sorted path order so the same query always
// produces the same SQL.
func Compile(q Query) (string, []any, error) {
	var (
		conds []string
		args  []any
	)

	if len(q.Kinds) > 0 {
		placeholders := strings.Repeat("?,", len(q.Kinds))
		placeholders = placeholders[:len(placeholders)-1]
		conds = append(conds, "kind IN ("+placeholders+")")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}

	paths := make([]string, 0, len(q.Where))
	for path := range q.Where {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		cond, condArgs, err := compilePredicate(path, q.Where[path])
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}

	return strings.Join(conds, " AND "), args, nil
}

// compilePredicate builds the condition for a single (path, value) entry.
func compilePredicate(path string, value any) (string, []any, error) {
	jsonPath, err := jsonPath(path)
	if err != nil {
		return "", nil, err
	}

	const expr = "json_extract(payload, ?)"

	switch v := value.(type) {
	case string:
		// Compared as text so a string predicate can match a stored
		// number or boolean by its rendering.
		if strings.ContainsRune(v, '*') {
			return "CAST(" + expr + ` AS TEXT) LIKE ? ESCAPE '\'`, []any{jsonPath, likePattern(v)}, nil
		}
		return "CAST(" + expr + " AS TEXT) = ?", []any{jsonPath, v}, nil
	case bool:
		// Stored JSON booleans extract as 1/0; string payloads may
		// spell them out. Both interpretations match.
		digit, word := "1", "true"
		if !v {
			digit, word = "0", "false"
		}
		return "lower(CAST(" + expr + " AS TEXT)) IN (?, ?)", []any{jsonPath, digit, word}, nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "CAST(" + expr + " AS NUMERIC) = CAST(? AS NUMERIC)", []any{jsonPath, v}, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return "CAST(" + expr + " AS NUMERIC) = CAST(? AS NUMERIC)", []any{jsonPath, n}, nil
		}
		n, err := v.Float64()
		if err != nil {
			return "", nil, rherr.Errorf(rherr.CodeSearchQueryInvalid, "predicate %q: invalid number %q", path, string(v))
		}
		return "CAST(" + expr + " AS NUMERIC) = CAST(? AS NUMERIC)", []any{jsonPath, n}, nil
	case nil:
		return expr + " IS NULL", []any{jsonPath}, nil
	default:
		canonical, err := canonicalJSON(v)
		if err != nil {
			return "", nil, rherr.Wrapf(err, rherr.CodeSearchQueryInvalid, "predicate %q: unsupported value", path)
		}
		return expr + " = ?", []any{jsonPath, canonical}, nil
	}
}

// jsonPath converts a dot-notation path into a SQLite JSON path with
// quoted segments ($."a"."b"), so keys containing dots cannot be
// addressed but keys with other special characters work.
func jsonPath(path string) (string, error) {
	if path == "" {
		return "", rherr.New(rherr.CodeSearchQueryInvalid, "empty predicate path")
	}

	segments := strings.Split(path, ".")
	var sb strings.Builder
	sb.WriteByte('$')
	for _, seg := range segments {
		if seg == "" {
			return "", rherr.Errorf(rherr.CodeSearchQueryInvalid, "predicate path %q has an empty segment", path)
		}
		if strings.ContainsRune(seg, '"') {
			return "", rherr.Errorf(rherr.CodeSearchQueryInvalid, "predicate path %q contains a quote", path)
		}
		sb.WriteString(`."`)
		sb.WriteString(seg)
		sb.WriteByte('"')
	}
	return sb.String(), nil
}

// likePattern rewrites a '*' wildcard string into a LIKE pattern,
// escaping LIKE metacharacters in the literal parts.
func likePattern(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*':
			sb.WriteByte('%')
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// canonicalJSON renders v as minified JSON with sorted object keys
// (encoding/json's map behavior), the canonical form the store also uses
// when persisting payloads.
func canonicalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
