// Package document reads documents kept in the key/value store by their owning system.
package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/blockfield/internal/db"
	"github.com/kailas-cloud/blockfield/internal/domain"
	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
)

// Hash fields of a stored document.
const (
	fieldContent = "content"
	fieldVersion = "version"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo is a read-only document accessor over hashes at <prefix>doc:<id>.
type Repo struct {
	store  store
	prefix string
}

// New creates a document repository. An empty prefix selects domain.DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Version returns the current save version without fetching the body.
func (r *Repo) Version(ctx context.Context, id string) (int64, error) {
	key := r.key(id)
	raw, err := r.store.HGet(ctx, key, fieldVersion)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, domain.ErrDocumentNotFound
		}
		return 0, fmt.Errorf("hget %s: %w", key, err)
	}
	return parseVersion(key, raw)
}

// Get returns the document body and its version.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := r.key(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	raw, ok := m[fieldVersion]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	ver, err := parseVersion(key, raw)
	if err != nil {
		return domdoc.Document{}, err
	}
	return domdoc.Reconstruct(id, m[fieldContent], ver), nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "doc:" + id
}

func parseVersion(key, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s version %q: %w", key, raw, domain.ErrInvalidVersion)
	}
	return v, nil
}
