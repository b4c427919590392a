// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package store

import (
	"sync"

	"github.com/rhyolite-dev/rhyolite/internal/blob"
	"github.com/rhyolite-dev/rhyolite/internal/schema"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// SchemaValidator is the schema-validation capability consumed by node
// writes and kind registration.
type SchemaValidator interface {
	// CheckSchema reports whether doc is a valid schema document.
	CheckSchema(doc map[string]any) error
	// Validate returns the structured violation list for payload against
	// schemaDoc, empty when the payload conforms. The list order is
	// stable across repeated calls for the same inputs.
	Validate(schemaDoc, payload map[string]any) ([]schema.ValidationError, error)
}

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the database file location (backend-specific).
	Path string `mapstructure:"path"`
}

// Deps carries the external capabilities a backend needs.
type Deps struct {
	Validator SchemaValidator
	Blobs     blob.Store
}

// Factory creates the store bundle for a backend given the database
// path and capability dependencies.
type Factory func(path string, deps Deps) (Stores, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the store bundle for the configured backend.
func Open(cfg *StorageConfig, deps Deps) (Stores, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, rherr.Errorf(rherr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	path := ""
	if cfg != nil {
		path = cfg.Path
	}
	return factory(path, deps)
}
