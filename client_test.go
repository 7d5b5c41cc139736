package blockfield

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

const testSchema = `
blocks:
  - name: ns/person
    attributes:
      - key: name
        type: string
      - key: age
        type: number
        default: 0
  - name: heading
    attributes:
      - key: level
        type: number
        default: 2
`

const testDoc = `<!-- wp:ns/person {"name":"Ada","age":36} /-->
<!-- wp:paragraph --><p>hi</p><!-- /wp:paragraph -->`

func newTestClient(t *testing.T, opts ...Option) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	base := []Option{WithRedis(mr.Addr(), ""), WithSchemaYAML([]byte(testSchema))}
	c, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, mr
}

func TestNew_NoDriver(t *testing.T) {
	_, err := New(WithSchemaYAML([]byte(testSchema)))
	if err == nil {
		t.Fatal("expected error when no driver configured")
	}
}

func TestNew_NoSchema(t *testing.T) {
	_, err := New(WithRedis("localhost:1", ""))
	if err == nil {
		t.Fatal("expected error when no schema configured")
	}
}

func TestNew_SchemaCollision(t *testing.T) {
	_, err := New(
		WithRedis("localhost:1", ""),
		WithSchemaYAML([]byte("blocks:\n  - name: core/a\n")),
		WithSchemaYAML([]byte("blocks:\n  - name: a\n")),
	)
	if !errors.Is(err, ErrDuplicateSchema) {
		t.Fatalf("err = %v, want ErrDuplicateSchema", err)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	if _, err := createStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret")(cfg)
	if cfg.driver != "valkey" || cfg.password != "secret" {
		t.Errorf("valkey option = %+v", cfg)
	}
	WithRedis("localhost:6380", "")(cfg)
	if cfg.driver != "redis" || cfg.addrs[0] != "localhost:6380" {
		t.Errorf("redis option = %+v", cfg)
	}
	WithKeyPrefix("bf:")(cfg)
	if cfg.keyPrefix != "bf:" {
		t.Errorf("prefix = %q", cfg.keyPrefix)
	}
	WithSchemaFiles("a/*.yaml", "b/**/*.yaml")(cfg)
	if len(cfg.schemaGlobs) != 2 {
		t.Errorf("globs = %v", cfg.schemaGlobs)
	}
}

func TestClient_SyncThenProjectFromMetadata(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	mr.HSet("blockfield:doc:post-1", "content", testDoc, "version", "3")

	rep, err := c.Sync(ctx, "post-1", testDoc, 3)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(rep.Failed) != 0 {
		t.Fatalf("failed entries: %+v", rep.Failed)
	}
	if len(rep.Written) == 0 {
		t.Fatal("expected written entries")
	}

	res, err := c.Project(ctx, "post-1", "ns/person.name", "heading.level")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	name, ok := res.Field("ns/person.name")
	if !ok || !name.Found || name.Value != "Ada" {
		t.Errorf("name = %+v", name)
	}
	if name.Source != SourceMetadata {
		t.Errorf("source = %q, want metadata", name.Source)
	}
	heading, ok := res.Field("heading.level")
	if !ok || heading.Found {
		t.Errorf("heading = %+v, want not found", heading)
	}
}

func TestClient_StaleMetadataFallsBackToContent(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	if _, err := c.Sync(ctx, "post-1", testDoc, 1); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	edited := `<!-- wp:ns/person {"name":"Grace","age":85} /-->`
	mr.HSet("blockfield:doc:post-1", "content", edited, "version", "2")

	res, err := c.Project(ctx, "post-1", "ns/person.name")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	name, _ := res.Field("ns/person.name")
	if name.Value != "Grace" || name.Source != SourceContent {
		t.Errorf("name = %+v, want Grace from content", name)
	}
}

func TestClient_ProjectMissingDocument(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Project(context.Background(), "nope", "ns/person.name")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestClient_PurgeAndInvalidInput(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	if _, err := c.Sync(ctx, "post-1", testDoc, 1); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !mr.Exists("blockfield:meta:post-1") {
		t.Fatal("metadata hash not written")
	}
	if err := c.Purge(ctx, "post-1"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if mr.Exists("blockfield:meta:post-1") {
		t.Error("metadata hash still present after purge")
	}

	if _, err := c.Sync(ctx, "post-1", testDoc, 0); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("err = %v, want ErrInvalidVersion", err)
	}
	if _, err := c.Sync(ctx, "bad id", testDoc, 1); !errors.Is(err, ErrInvalidDocumentID) {
		t.Errorf("err = %v, want ErrInvalidDocumentID", err)
	}
}

func TestClient_DocumentRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "about.html"), []byte(testDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, _ := newTestClient(t, WithDocumentRoot(dir, ""))

	res, err := c.Project(context.Background(), "about.html", "ns/person.age")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	age, _ := res.Field("ns/person.age")
	if age.Value != float64(36) {
		t.Errorf("age = %+v, want 36", age)
	}
}

func TestClient_Blocks(t *testing.T) {
	c, _ := newTestClient(t)
	blocks := c.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if blocks[0].Name != "ns/person" || len(blocks[0].Attributes) != 2 {
		t.Errorf("first block = %+v", blocks[0])
	}
	if blocks[1].Name != "core/heading" || blocks[1].Attributes[0].Default != float64(2) {
		t.Errorf("second block = %+v", blocks[1])
	}
}
