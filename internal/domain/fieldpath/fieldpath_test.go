package fieldpath

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		raw       string
		block     string
		attr      string
		mode      Mode
		canonical string
	}{
		{"ns/b.name", "ns/b", "name", First, "ns/b.name"},
		{"ns/b.*", "ns/b", "*", First, "ns/b.*"},
		{"ns/b[].name", "ns/b", "name", All, "ns/b[].name"},
		{"ns/b[].*", "ns/b", "*", All, "ns/b[].*"},
		{"paragraph.align", "core/paragraph", "align", First, "core/paragraph.align"},
	}

	for _, tt := range tests {
		p, err := Parse(tt.raw)
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if p.Block() != tt.block || p.Attr() != tt.attr || p.Mode() != tt.mode {
			t.Errorf("Parse(%q) = {%s %s %s}", tt.raw, p.Block(), p.Attr(), p.Mode())
		}
		if p.Canonical() != tt.canonical {
			t.Errorf("Canonical() = %q, want %q", p.Canonical(), tt.canonical)
		}
		if p.String() != tt.raw {
			t.Errorf("String() = %q, want %q", p.String(), tt.raw)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{"", "ns/b", "ns/b.", ".name", "NS/b.name", "ns/b.na me", "ns/b.a.b", "ns/b[.x"} {
		if _, err := Parse(raw); !errors.Is(err, domain.ErrInvalidFieldPath) {
			t.Errorf("Parse(%q): expected ErrInvalidFieldPath, got %v", raw, err)
		}
	}
}

func TestResolve(t *testing.T) {
	attr, err := schema.NewAttribute("name", value.String, value.NullValue(), true)
	if err != nil {
		t.Fatal(err)
	}
	blk, err := schema.NewBlock("ns/b", attr)
	if err != nil {
		t.Fatal(err)
	}
	bld := schema.NewBuilder()
	_ = bld.Register(blk)
	reg := bld.MustBuild()

	ok := []string{"ns/b.name", "ns/b.*", "ns/b[].name"}
	for _, raw := range ok {
		p, _ := Parse(raw)
		if _, err := Resolve(p, reg); err != nil {
			t.Errorf("Resolve(%q): %v", raw, err)
		}
	}

	p, _ := Parse("ns/other.name")
	if _, err := Resolve(p, reg); !errors.Is(err, domain.ErrUnknownBlock) {
		t.Errorf("expected ErrUnknownBlock, got %v", err)
	}

	p, _ = Parse("ns/b.age")
	if _, err := Resolve(p, reg); !errors.Is(err, domain.ErrInvalidFieldPath) {
		t.Errorf("expected ErrInvalidFieldPath, got %v", err)
	}
}
