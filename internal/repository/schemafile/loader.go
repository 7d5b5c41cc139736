// Package schemafile loads block schemas from YAML files into a registry.
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/blockfield/internal/domain/schema"
)

// ErrNoFiles is returned when no schema file matches the configured globs.
var ErrNoFiles = errors.New("no schema files matched")

// Files expands globs (with ** support) into a sorted, deduplicated file list.
func Files(globs []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, g := range globs {
		matches, err := doublestar.FilepathGlob(g, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", g, err)
		}
		for _, m := range matches {
			m = filepath.Clean(m)
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load builds a registry from every schema file matching globs. A block
// registered twice, in one file or across files, fails the whole load.
func Load(globs []string) (*schema.Registry, error) {
	files, err := Files(globs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoFiles, globs)
	}

	b := schema.NewBuilder()
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", f, err)
		}
		if err := register(b, data); err != nil {
			return nil, fmt.Errorf("schema %s: %w", f, err)
		}
	}
	return b.Build()
}

// Parse builds a registry from a single YAML document.
func Parse(data []byte) (*schema.Registry, error) {
	return ParseAll(data)
}

// ParseAll builds one registry from several YAML documents, in order.
func ParseAll(docs ...[]byte) (*schema.Registry, error) {
	b := schema.NewBuilder()
	for i, data := range docs {
		if err := register(b, data); err != nil {
			return nil, fmt.Errorf("schema document %d: %w", i, err)
		}
	}
	return b.Build()
}

func register(b *schema.Builder, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file fileDTO
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse: %w", err)
	}
	for _, bd := range file.Blocks {
		blk, err := bd.toDomain()
		if err != nil {
			return err
		}
		if err := b.Register(blk); err != nil {
			return err
		}
	}
	return nil
}
