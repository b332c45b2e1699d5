// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package outbox writes generated artifacts into the per-channel output
// directories. Every write is atomic (temp file + rename) and unchanged
// contents are left alone, so regenerating an identical batch touches
// nothing on disk.
package outbox

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ssext/submission/internal/fingerprint"
)

// Writer owns one output root.
type Writer struct {
	root   string
	filter *fingerprint.Filter
}

// Result describes one write.
type Result struct {
	Path    string // relative to the root
	Changed bool
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{
		root:   dir,
		filter: fingerprint.NewFilter(),
	}
}

// Root is the output directory.
func (w *Writer) Root() string { return w.root }

// Reset removes and recreates each named subdirectory, dropping stale
// artifacts from earlier runs.
func (w *Writer) Reset(subdirs ...string) error {
	for _, sub := range subdirs {
		dir := filepath.Join(w.root, sub)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		prefix := sub + string(filepath.Separator)
		w.filter.Forget(func(k string) bool { return strings.HasPrefix(k, prefix) })
	}
	slog.Debug("output directories reset", "root", w.root, "dirs", subdirs)
	return nil
}

// Write stores data at root/subdir/name unless identical content is
// already there.
func (w *Writer) Write(subdir, name string, data []byte) (Result, error) {
	rel := filepath.Join(subdir, name)
	path := filepath.Join(w.root, rel)

	if !w.filter.Known(rel) {
		existing, err := os.ReadFile(path)
		switch {
		case err == nil:
			w.filter.Remember(rel, existing)
		case !errors.Is(err, fs.ErrNotExist):
			return Result{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if !w.filter.IsNew(rel, data) {
		return Result{Path: rel}, nil
	}

	if err := WriteFileAtomic(path, data); err != nil {
		w.filter.Forget(func(k string) bool { return k == rel })
		return Result{}, err
	}
	slog.Debug("artifact written", "path", rel, "bytes", len(data))
	return Result{Path: rel, Changed: true}, nil
}

// WriteFileAtomic replaces path with data via a temp file in the same
// directory, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
