// Package metadata persists synchronized attribute entries, one hash per document.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/blockfield/internal/db"
	"github.com/kailas-cloud/blockfield/internal/domain"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// store is the consumer interface for metadata (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSetIfNewer(ctx context.Context, key string, version int64, fields []db.VersionedField) ([]bool, error)
	Del(ctx context.Context, key string) error
}

// Repo implements the metadata accessor of the sync and projection usecases.
type Repo struct {
	store  store
	prefix string
}

// New creates a metadata repository. An empty prefix selects domain.DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Load reads every entry of a document in one round trip.
// Entries that cannot be decoded are left out and resolve as absent.
func (r *Repo) Load(ctx context.Context, docID string) (dommeta.Set, error) {
	key := r.key(docID)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return decodeSet(fields), nil
}

// Write stores entries under the version guard. Entries are grouped by
// version, one atomic script call per group. A failed call marks every entry
// of its group as failed; other groups are unaffected.
//
// A single sync writes all of its entries at one version, so for a sync the
// isolation unit is the entry only for encoding failures. A store error fails
// every entry of the sync at once, and the guard keeps the stored set
// unchanged rather than partially applied.
func (r *Repo) Write(ctx context.Context, docID string, entries []dommeta.Entry) []dommeta.WriteResult {
	key := r.key(docID)
	results := make([]dommeta.WriteResult, len(entries))

	type group struct {
		idx    []int
		fields []db.VersionedField
	}
	var order []int64
	groups := make(map[int64]*group)

	for i, e := range entries {
		data, err := json.Marshal(e.Value)
		if err != nil {
			results[i] = dommeta.NewFailed(e.Key, fmt.Errorf("encode %s: %w: %w", e.Key, domain.ErrMetadataWrite, err))
			continue
		}
		g, ok := groups[e.Version]
		if !ok {
			g = &group{}
			groups[e.Version] = g
			order = append(order, e.Version)
		}
		g.idx = append(g.idx, i)
		g.fields = append(g.fields, db.VersionedField{Field: e.Key, Value: string(data), Note: e.Mismatch})
	}

	for _, ver := range order {
		g := groups[ver]
		applied, err := r.store.HSetIfNewer(ctx, key, ver, g.fields)
		if err == nil && len(applied) != len(g.fields) {
			err = fmt.Errorf("got %d replies for %d fields", len(applied), len(g.fields))
		}
		for j, i := range g.idx {
			k := entries[i].Key
			switch {
			case err != nil:
				results[i] = dommeta.NewFailed(k, fmt.Errorf("write %s: %w: %w", k, domain.ErrMetadataWrite, err))
			case applied[j]:
				results[i] = dommeta.NewWritten(k)
			default:
				results[i] = dommeta.NewSuperseded(k)
			}
		}
	}
	return results
}

// Purge deletes every entry of a document.
func (r *Repo) Purge(ctx context.Context, docID string) error {
	key := r.key(docID)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Repo) key(docID string) string {
	return r.prefix + "meta:" + docID
}

func decodeSet(fields map[string]string) dommeta.Set {
	set := make(dommeta.Set, len(fields)/3)
	for f, raw := range fields {
		if strings.HasSuffix(f, db.VersionSuffix) || strings.HasSuffix(f, db.NoteSuffix) {
			continue
		}
		ver, err := strconv.ParseInt(fields[f+db.VersionSuffix], 10, 64)
		if err != nil {
			continue
		}
		var v value.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			continue
		}
		set[f] = dommeta.Entry{Key: f, Value: v, Version: ver, Mismatch: fields[f+db.NoteSuffix]}
	}
	return set
}
