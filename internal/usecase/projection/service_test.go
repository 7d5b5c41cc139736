package projection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/blockfield/internal/domain"
	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
	domproj "github.com/kailas-cloud/blockfield/internal/domain/projection"
)

const content = `<!-- wp:ns/person {"name":"Ada","age":"36","active":false} -->
<p>bio</p>
<!-- /wp:ns/person -->
<!-- wp:ns/note {"text":"first","scratch":"s"} /-->
<!-- wp:ns/note {"text":"second"} /-->`

func mustField(t *testing.T, res domproj.Result, path string) domproj.Field {
	t.Helper()
	f, ok := res.Field(path)
	if !ok {
		t.Fatalf("field %q missing from result", path)
	}
	return f
}

func hasCode(f domproj.Field, code domproj.Code) bool {
	for _, d := range f.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestProject_SlowPathWithoutMetadata(t *testing.T) {
	docs := newMockDocs()
	docs.put(t, "doc", content, 1)
	e := New(testRegistry(t), docs, newMemMeta(), nil)

	res, err := e.Project(context.Background(), "doc", []string{"ns/person.name", "ns/person.age", "ns/note.text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DocumentID != "doc" || res.Version != 1 || len(res.Fields) != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}

	name := mustField(t, res, "ns/person.name")
	if s, _ := name.Value.Str(); s != "Ada" || !name.Found || name.Source != domproj.SourceContent {
		t.Errorf("name = %+v", name)
	}
	age := mustField(t, res, "ns/person.age")
	if n, _ := age.Value.Num(); n != 36 {
		t.Errorf("age should be coerced to 36, got %v", age.Value)
	}
	text := mustField(t, res, "ns/note.text")
	if s, _ := text.Value.Str(); s != "first" {
		t.Errorf("text = %v, want first occurrence", text.Value)
	}

	if got := docs.gets.Load(); got != 1 {
		t.Errorf("body fetched %d times, want 1", got)
	}
}

func TestProject_FastPathWhenFresh(t *testing.T) {
	reg := testRegistry(t)
	docs := newMockDocs()
	docs.put(t, "doc", content, 3)
	meta := newMemMeta()
	syncDoc(t, reg, meta, "doc", content, 3)

	e := New(reg, docs, meta, nil)
	res, err := e.Project(context.Background(), "doc", []string{"ns/person.name", "ns/person.*", "ns/note.text"})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range res.Fields {
		if f.Source != domproj.SourceMetadata {
			t.Errorf("%s source = %s, want metadata", f.Path, f.Source)
		}
	}
	if docs.gets.Load() != 0 {
		t.Error("fresh metadata must not touch the document body")
	}
	if meta.loads.Load() != 1 {
		t.Errorf("metadata loaded %d times, want 1", meta.loads.Load())
	}
}

func TestProject_FastAndSlowPathsAgree(t *testing.T) {
	reg := testRegistry(t)
	docs := newMockDocs()
	docs.put(t, "doc", content, 2)
	meta := newMemMeta()
	syncDoc(t, reg, meta, "doc", content, 2)

	paths := []string{"ns/person.name", "ns/person.age", "ns/person.active", "ns/person.*", "ns/note.text", "core/heading.level"}
	fast, err := New(reg, docs, meta, nil).Project(context.Background(), "doc", paths)
	if err != nil {
		t.Fatal(err)
	}
	slow, err := New(reg, docs, newMemMeta(), nil).Project(context.Background(), "doc", paths)
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range paths {
		a, b := mustField(t, fast, p), mustField(t, slow, p)
		if !a.Value.Equal(b.Value) || a.Found != b.Found {
			t.Errorf("%s: fast %v/%v, slow %v/%v", p, a.Value, a.Found, b.Value, b.Found)
		}
	}
}

func TestProject_StaleMetadataFallsBackToContent(t *testing.T) {
	reg := testRegistry(t)
	docs := newMockDocs()
	meta := newMemMeta()
	syncDoc(t, reg, meta, "doc", `<!-- wp:ns/person {"name":"old"} /-->`, 1)
	docs.put(t, "doc", `<!-- wp:ns/person {"name":"new"} /-->`, 2)

	res, err := New(reg, docs, meta, nil).Project(context.Background(), "doc", []string{"ns/person.name"})
	if err != nil {
		t.Fatal(err)
	}
	f := mustField(t, res, "ns/person.name")
	if s, _ := f.Value.Str(); s != "new" || f.Source != domproj.SourceContent {
		t.Errorf("stale entry served: %+v", f)
	}
}

func TestProject_NonPersistedAttributeReadsContent(t *testing.T) {
	reg := testRegistry(t)
	docs := newMockDocs()
	docs.put(t, "doc", content, 1)
	meta := newMemMeta()
	syncDoc(t, reg, meta, "doc", content, 1)

	res, err := New(reg, docs, meta, nil).Project(context.Background(), "doc", []string{"ns/note.scratch", "ns/note.text"})
	if err != nil {
		t.Fatal(err)
	}
	scratch := mustField(t, res, "ns/note.scratch")
	if s, _ := scratch.Value.Str(); s != "s" || scratch.Source != domproj.SourceContent {
		t.Errorf("scratch = %+v", scratch)
	}
	if text := mustField(t, res, "ns/note.text"); text.Source != domproj.SourceMetadata {
		t.Errorf("text source = %s", text.Source)
	}
}

func TestProject_TypeMismatchOnBothPaths(t *testing.T) {
	reg := testRegistry(t)
	raw := `<!-- wp:ns/person {"name":"Ada","age":"old"} /-->`
	docs := newMockDocs()
	docs.put(t, "doc", raw, 1)
	meta := newMemMeta()
	syncDoc(t, reg, meta, "doc", raw, 1)

	for name, m := range map[string]*memMeta{"metadata": meta, "content": newMemMeta()} {
		res, err := New(reg, docs, m, nil).Project(context.Background(), "doc", []string{"ns/person.age", "ns/person.name"})
		if err != nil {
			t.Fatal(err)
		}
		age := mustField(t, res, "ns/person.age")
		if age.Found || !age.Value.IsNull() || !hasCode(age, domproj.CodeTypeMismatch) {
			t.Errorf("%s: age = %+v", name, age)
		}
		if string(age.Source) != name {
			t.Errorf("%s: source = %s", name, age.Source)
		}
		if n := mustField(t, res, "ns/person.name"); !n.Found {
			t.Errorf("%s: mismatch must not affect siblings", name)
		}
	}
}

func TestProject_MissingBlock(t *testing.T) {
	docs := newMockDocs()
	docs.put(t, "doc", `<p>plain</p>`, 1)
	e := New(testRegistry(t), docs, newMemMeta(), nil)

	res, err := e.Project(context.Background(), "doc", []string{"ns/person.name", "ns/person.*"})
	if err != nil {
		t.Fatalf("missing block must not fail the call: %v", err)
	}
	for _, f := range res.Fields {
		if f.Found || !hasCode(f, domproj.CodeBlockNotFound) {
			t.Errorf("%s = %+v", f.Path, f)
		}
		for _, d := range f.Diagnostics {
			if !strings.Contains(d.Message, domain.ErrBlockNotFound.Error()) {
				t.Errorf("%s message = %q", f.Path, d.Message)
			}
		}
	}
}

func TestProject_DefaultRequestOmitsAbsentBlocks(t *testing.T) {
	reg := testRegistry(t)
	docs := newMockDocs()
	docs.put(t, "doc", content, 1)

	for name, meta := range map[string]*memMeta{"content": newMemMeta(), "metadata": newMemMeta()} {
		if name == "metadata" {
			syncDoc(t, reg, meta, "doc", content, 1)
		}
		res, err := New(reg, docs, meta, nil).Project(context.Background(), "doc", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Fields) != 2 {
			t.Fatalf("%s: expected person and note only, got %+v", name, res.Fields)
		}
		if _, ok := res.Field("core/heading.*"); ok {
			t.Errorf("%s: absent block must be omitted", name)
		}
		person := mustField(t, res, "ns/person.*")
		obj, _ := person.Value.Fields()
		if len(obj) != 3 {
			t.Errorf("%s: person object = %v", name, person.Value)
		}
	}
}

func TestProject_AllMatchesAlwaysReadContent(t *testing.T) {
	reg := testRegistry(t)
	docs := newMockDocs()
	docs.put(t, "doc", content, 1)
	meta := newMemMeta()
	syncDoc(t, reg, meta, "doc", content, 1)

	res, err := New(reg, docs, meta, nil).Project(context.Background(), "doc",
		[]string{"ns/note[].text", "ns/note[].*", "core/heading[].level"})
	if err != nil {
		t.Fatal(err)
	}

	texts := mustField(t, res, "ns/note[].text")
	items, _ := texts.Value.Items()
	if texts.Source != domproj.SourceContent || len(items) != 2 {
		t.Fatalf("texts = %+v", texts)
	}
	if s, _ := items[1].Str(); s != "second" {
		t.Errorf("second occurrence = %v", items[1])
	}
	objs, _ := mustField(t, res, "ns/note[].*").Value.Items()
	if len(objs) != 2 {
		t.Errorf("objects = %v", objs)
	}
	none := mustField(t, res, "core/heading[].level")
	if none.Found || !hasCode(none, domproj.CodeBlockNotFound) {
		t.Errorf("heading = %+v", none)
	}
	if docs.gets.Load() != 1 {
		t.Errorf("body fetched %d times, want 1", docs.gets.Load())
	}
}

func TestProject_UnknownPathsAreIsolated(t *testing.T) {
	docs := newMockDocs()
	docs.put(t, "doc", content, 1)

	res, err := New(testRegistry(t), docs, newMemMeta(), nil).Project(context.Background(), "doc",
		[]string{"ns/unknown.x", "ns/person.height", "bad path", "ns/person.name", "ns/person.name"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fields) != 1 || len(res.Diagnostics) != 3 {
		t.Errorf("fields=%d diagnostics=%d", len(res.Fields), len(res.Diagnostics))
	}
}

func TestProject_DocumentNotFound(t *testing.T) {
	e := New(testRegistry(t), newMockDocs(), newMemMeta(), nil)
	if _, err := e.Project(context.Background(), "missing", nil); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := e.Project(context.Background(), "", nil); !errors.Is(err, domain.ErrInvalidDocumentID) {
		t.Errorf("expected ErrInvalidDocumentID, got %v", err)
	}
}

func TestProject_ConcurrentRequestsShareOneParse(t *testing.T) {
	docs := newMockDocs()
	docs.put(t, "doc", content, 1)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	doc, _ := domdoc.New("doc", content, 1)
	docs.getFn = func(context.Context, string) (domdoc.Document, error) {
		started <- struct{}{}
		<-release
		return doc, nil
	}
	e := New(testRegistry(t), docs, newMemMeta(), nil)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	run := func() {
		defer wg.Done()
		res, err := e.Project(context.Background(), "doc", []string{"ns/person.name"})
		if f, ok := res.Field("ns/person.name"); err == nil && (!ok || !f.Found) {
			err = errors.New("name not resolved")
		}
		errs <- err
	}

	wg.Add(1)
	go run()
	<-started
	for i := 1; i < n; i++ {
		wg.Add(1)
		go run()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
	if got := docs.gets.Load(); got != 1 {
		t.Errorf("document fetched %d times, want 1", got)
	}
}

func TestProject_CancelledWhileLoading(t *testing.T) {
	docs := newMockDocs()
	docs.put(t, "doc", content, 1)
	release := make(chan struct{})
	defer close(release)
	doc, _ := domdoc.New("doc", content, 1)
	docs.getFn = func(context.Context, string) (domdoc.Document, error) {
		<-release
		return doc, nil
	}
	e := New(testRegistry(t), docs, newMemMeta(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.Project(ctx, "doc", []string{"ns/person.name"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestProject_OversizedDocumentIsStillRead(t *testing.T) {
	big := strings.Repeat("x", domdoc.MaxContentSize+1) + `<!-- wp:ns/person {"name":"Ada"} /-->`
	docs := newMockDocs()
	docs.put(t, "big", big, 1)
	e := New(testRegistry(t), docs, newMemMeta(), nil)

	res, err := e.Project(context.Background(), "big", []string{"ns/person.name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name := mustField(t, res, "ns/person.name")
	if s, _ := name.Value.Str(); s != "Ada" || !name.Found {
		t.Errorf("name = %+v", name)
	}
}
