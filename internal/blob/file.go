// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package blob

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore is a filesystem-backed blob store rooted at a single
// directory. Keys are slash-separated relative paths; attachment keys
// are "<node_id>/<attachment_id>", so blobs group per node.
type FileStore struct {
	root string
}

// NewFileStore creates (if needed) the root directory and returns a
// store over it.
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "resolving blob root %s", root)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "creating blob root %s", abs)
	}
	return &FileStore{root: abs}, nil
}

// Root returns the absolute root directory of the store.
func (s *FileStore) Root() string {
	return s.root
}

// resolve maps a key to a path under root, rejecting traversal outside it.
func (s *FileStore) resolve(key string) (string, error) {
	if key == "" {
		return "", rherr.New(rherr.CodeBlobWriteFailure, "empty blob key")
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", rherr.Errorf(rherr.CodeBlobWriteFailure, "blob key %q escapes the store root", key)
	}
	return path, nil
}

func (s *FileStore) Put(key string, r io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "creating blob directory for %s", key)
	}

	f, err := os.Create(path)
	if err != nil {
		return rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "creating blob %s", key)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "writing blob %s", key)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "closing blob %s", key)
	}
	return nil
}

func (s *FileStore) Open(key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, rherr.Errorf(rherr.CodeBlobNotFound, "blob %s not found", key)
	}
	if err != nil {
		return nil, rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "opening blob %s", key)
	}
	return f, nil
}

func (s *FileStore) Exists(key string) bool {
	path, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *FileStore) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return rherr.Wrapf(err, rherr.CodeBlobWriteFailure, "deleting blob %s", key)
	}
	return nil
}
