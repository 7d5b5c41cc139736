package metasync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// memStore is a MetadataWriter with the same version guard as the real store.
type memStore struct {
	mu       sync.Mutex
	docs     map[string]dommeta.Set
	failKeys map[string]bool
	purgeErr error

	inflight   atomic.Int32
	overlapped atomic.Bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]dommeta.Set), failKeys: make(map[string]bool)}
}

func (m *memStore) Write(_ context.Context, docID string, entries []dommeta.Entry) []dommeta.WriteResult {
	if m.inflight.Add(1) > 1 {
		m.overlapped.Store(true)
	}
	defer m.inflight.Add(-1)

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.docs[docID]
	if !ok {
		set = make(dommeta.Set)
		m.docs[docID] = set
	}
	out := make([]dommeta.WriteResult, len(entries))
	for i, e := range entries {
		switch cur, exists := set[e.Key]; {
		case m.failKeys[e.Key]:
			out[i] = dommeta.NewFailed(e.Key, errors.New("write refused"))
		case exists && cur.Version > e.Version:
			out[i] = dommeta.NewSuperseded(e.Key)
		default:
			set[e.Key] = e
			out[i] = dommeta.NewWritten(e.Key)
		}
	}
	return out
}

func (m *memStore) Purge(_ context.Context, docID string) error {
	if m.purgeErr != nil {
		return m.purgeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docID)
	return nil
}

func (m *memStore) entry(docID, key string) (dommeta.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.docs[docID][key]
	return e, ok
}

func (m *memStore) snapshot(docID string) dommeta.Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(dommeta.Set, len(m.docs[docID]))
	for k, v := range m.docs[docID] {
		out[k] = v
	}
	return out
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	mk := func(key string, kind value.Kind, def value.Value, persisted bool) schema.Attribute {
		a, err := schema.NewAttribute(key, kind, def, persisted)
		if err != nil {
			t.Fatalf("NewAttribute(%q): %v", key, err)
		}
		return a
	}
	person, err := schema.NewBlock("ns/person",
		mk("name", value.String, value.NullValue(), true),
		mk("age", value.Number, value.NullValue(), true),
		mk("draft", value.String, value.NullValue(), false),
	)
	if err != nil {
		t.Fatal(err)
	}
	heading, err := schema.NewBlock("ns/heading",
		mk("level", value.Number, value.NumberOf(2), true),
	)
	if err != nil {
		t.Fatal(err)
	}
	b := schema.NewBuilder()
	_ = b.Register(person)
	_ = b.Register(heading)
	return b.MustBuild()
}

// fakeSyncer is a Syncer driven by test functions.
type fakeSyncer struct {
	syncFn  func(ctx context.Context, docID, raw string, version int64) (dommeta.Report, error)
	purgeFn func(ctx context.Context, docID string) error
}

func (f *fakeSyncer) Sync(ctx context.Context, docID, raw string, version int64) (dommeta.Report, error) {
	if f.syncFn != nil {
		return f.syncFn(ctx, docID, raw, version)
	}
	return dommeta.Report{DocumentID: docID, Version: version}, nil
}

func (f *fakeSyncer) Purge(ctx context.Context, docID string) error {
	if f.purgeFn != nil {
		return f.purgeFn(ctx, docID)
	}
	return nil
}
