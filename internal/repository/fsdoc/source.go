// Package fsdoc serves documents from a directory tree. The document ID is the
// slash-separated path relative to the root; the version is the file's
// modification time in nanoseconds.
package fsdoc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kailas-cloud/blockfield/internal/domain"
	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
)

// DefaultPattern includes every HTML file below the root.
const DefaultPattern = "**/*.html"

// Source is a read-only document accessor over a directory.
type Source struct {
	root    string
	fsys    fs.FS
	pattern string
}

// New creates a source rooted at dir. Only files matching pattern are documents.
func New(dir, pattern string) (*Source, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid include pattern %q", pattern)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}
	return &Source{root: abs, fsys: os.DirFS(abs), pattern: pattern}, nil
}

// HealthCheck verifies the root directory is still readable.
func (s *Source) HealthCheck(_ context.Context) error {
	if _, err := fs.Stat(s.fsys, "."); err != nil {
		return fmt.Errorf("stat root: %w: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}

// Root returns the absolute root directory.
func (s *Source) Root() string { return s.root }

// Includes reports whether id names a document of this source.
func (s *Source) Includes(id string) bool {
	if !fs.ValidPath(id) || id == "." {
		return false
	}
	ok, err := doublestar.Match(s.pattern, id)
	return err == nil && ok
}

// Version returns the document's modification time.
func (s *Source) Version(_ context.Context, id string) (int64, error) {
	info, err := s.stat(id)
	if err != nil {
		return 0, err
	}
	return versionOf(info), nil
}

// Get reads the document body. The version is taken before the read, so a
// concurrent save yields a newer body under an older version and a later
// sync corrects the metadata.
func (s *Source) Get(_ context.Context, id string) (domdoc.Document, error) {
	info, err := s.stat(id)
	if err != nil {
		return domdoc.Document{}, err
	}
	data, err := fs.ReadFile(s.fsys, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("read %s: %w: %w", id, domain.ErrBackendUnavailable, err)
	}
	return domdoc.Reconstruct(id, string(data), versionOf(info)), nil
}

// IDs lists every document currently below the root, in lexical order.
func (s *Source) IDs() ([]string, error) {
	ids, err := doublestar.Glob(s.fsys, s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", s.pattern, err)
	}
	return ids, nil
}

// idOf converts an absolute path to a document ID.
func (s *Source) idOf(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", false
	}
	id := filepath.ToSlash(rel)
	return id, s.Includes(id)
}

func (s *Source) stat(id string) (fs.FileInfo, error) {
	if !s.Includes(id) {
		return nil, domain.ErrDocumentNotFound
	}
	info, err := fs.Stat(s.fsys, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("stat %s: %w: %w", id, domain.ErrBackendUnavailable, err)
	}
	if info.IsDir() {
		return nil, domain.ErrDocumentNotFound
	}
	return info, nil
}

func versionOf(info fs.FileInfo) int64 {
	v := info.ModTime().UnixNano()
	if v <= 0 {
		return 1
	}
	return v
}
