package projection

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/blockfield/internal/domain"
	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
	"github.com/kailas-cloud/blockfield/internal/usecase/metasync"
)

// mockDocs is an in-memory DocumentSource.
type mockDocs struct {
	mu    sync.Mutex
	docs  map[string]domdoc.Document
	gets  atomic.Int32
	getFn func(ctx context.Context, id string) (domdoc.Document, error)
}

func newMockDocs() *mockDocs {
	return &mockDocs{docs: make(map[string]domdoc.Document)}
}

func (m *mockDocs) put(t *testing.T, id, content string, version int64) {
	t.Helper()
	m.mu.Lock()
	m.docs[id] = domdoc.Reconstruct(id, content, version)
	m.mu.Unlock()
}

func (m *mockDocs) Version(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return 0, domain.ErrDocumentNotFound
	}
	return d.Version(), nil
}

func (m *mockDocs) Get(ctx context.Context, id string) (domdoc.Document, error) {
	m.gets.Add(1)
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

// memMeta stores entries without a version guard; reads return a copy.
type memMeta struct {
	mu    sync.Mutex
	sets  map[string]dommeta.Set
	loads atomic.Int32
}

func newMemMeta() *memMeta {
	return &memMeta{sets: make(map[string]dommeta.Set)}
}

func (m *memMeta) Write(_ context.Context, docID string, entries []dommeta.Entry) []dommeta.WriteResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[docID]
	if !ok {
		set = make(dommeta.Set)
		m.sets[docID] = set
	}
	out := make([]dommeta.WriteResult, len(entries))
	for i, e := range entries {
		set[e.Key] = e
		out[i] = dommeta.NewWritten(e.Key)
	}
	return out
}

func (m *memMeta) Purge(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, docID)
	return nil
}

func (m *memMeta) Load(_ context.Context, docID string) (dommeta.Set, error) {
	m.loads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(dommeta.Set, len(m.sets[docID]))
	for k, v := range m.sets[docID] {
		out[k] = v
	}
	return out, nil
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
	blocks := []func() (schema.Block, error){
		func() (schema.Block, error) {
			return schema.NewBlock("ns/person",
				mk("name", value.String, value.NullValue(), true),
				mk("age", value.Number, value.NullValue(), true),
				mk("active", value.Bool, value.BoolOf(true), true),
			)
		},
		func() (schema.Block, error) {
			return schema.NewBlock("ns/note",
				mk("text", value.String, value.NullValue(), true),
				mk("scratch", value.String, value.NullValue(), false),
			)
		},
		func() (schema.Block, error) {
			return schema.NewBlock("core/heading",
				mk("level", value.Number, value.NumberOf(2), true),
			)
		},
	}
	b := schema.NewBuilder()
	for _, mkBlock := range blocks {
		blk, err := mkBlock()
		if err != nil {
			t.Fatal(err)
		}
		if err := b.Register(blk); err != nil {
			t.Fatal(err)
		}
	}
	return b.MustBuild()
}

// syncDoc runs the real synchronizer against meta.
func syncDoc(t *testing.T, reg *schema.Registry, meta *memMeta, id, content string, version int64) {
	t.Helper()
	report, err := metasync.New(reg, meta, nil).Sync(context.Background(), id, content, version)
	if err != nil || report.Err() != nil {
		t.Fatalf("sync: %v %v", err, report.Err())
	}
}
