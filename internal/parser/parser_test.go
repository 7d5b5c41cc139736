package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

func names(nodes []block.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		if n.IsText() {
			out[i] = "#text"
			continue
		}
		out[i] = n.Name
	}
	return out
}

func TestParse_SingleBlockWithAttributes(t *testing.T) {
	raw := `<!-- wp:ns/person {"name":"Anna","age":34,"tags":["a","b"]} --><p>Hi</p><!-- /wp:ns/person -->`

	nodes := Parse(raw)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d: %v", len(nodes), names(nodes))
	}
	n := nodes[0]
	if n.Name != "ns/person" {
		t.Errorf("Name = %q", n.Name)
	}
	if s, _ := n.Attrs["name"].Str(); s != "Anna" {
		t.Errorf("name = %v", n.Attrs["name"])
	}
	if f, _ := n.Attrs["age"].Num(); f != 34 {
		t.Errorf("age = %v", n.Attrs["age"])
	}
	if n.Attrs["tags"].Kind() != value.List {
		t.Errorf("tags kind = %s", n.Attrs["tags"].Kind())
	}
	if len(n.Children) != 1 || n.Children[0].Text != "<p>Hi</p>" {
		t.Errorf("children = %+v", n.Children)
	}
}

func TestParse_SelfClosingAndBareNames(t *testing.T) {
	raw := `<!-- wp:spacer {"height":"20px"} /--><!-- wp:separator /-->`

	nodes := Parse(raw)
	got := names(nodes)
	want := []string{"core/spacer", "core/separator"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if s, _ := nodes[0].Attrs["height"].Str(); s != "20px" {
		t.Errorf("height = %v", nodes[0].Attrs["height"])
	}
}

func TestParse_SiblingsAndFreeformText(t *testing.T) {
	raw := "intro\n<!-- wp:ns/a /-->\nmiddle\n<!-- wp:ns/b --><!-- /wp:ns/b -->tail"

	got := names(Parse(raw))
	want := []string{"#text", "ns/a", "#text", "ns/b", "#text"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
}

func TestParse_Nesting(t *testing.T) {
	raw := `<!-- wp:columns --><!-- wp:column {"width":"50%"} --><!-- wp:ns/person {"name":"Bo"} /--><!-- /wp:column --><!-- /wp:columns -->`

	nodes := Parse(raw)
	if len(nodes) != 1 || nodes[0].Name != "core/columns" {
		t.Fatalf("top = %v", names(nodes))
	}
	col := nodes[0].Children
	if len(col) != 1 || col[0].Name != "core/column" {
		t.Fatalf("columns children = %v", names(col))
	}
	inner := col[0].Children
	if len(inner) != 1 || inner[0].Name != "ns/person" {
		t.Fatalf("column children = %v", names(inner))
	}
}

func TestParse_DeepNestingIsNotTruncated(t *testing.T) {
	const depth = 5000
	var b strings.Builder
	for i := 0; i < depth; i++ {
		b.WriteString("<!-- wp:group -->")
	}
	b.WriteString(`<!-- wp:ns/leaf {"v":1} /-->`)
	for i := 0; i < depth; i++ {
		b.WriteString("<!-- /wp:group -->")
	}

	nodes := Parse(b.String())
	level := 0
	for len(nodes) == 1 && nodes[0].Name == "core/group" {
		nodes = nodes[0].Children
		level++
	}
	if level != depth {
		t.Fatalf("depth = %d, want %d", level, depth)
	}
	if len(nodes) != 1 || nodes[0].Name != "ns/leaf" {
		t.Fatalf("leaf = %v", names(nodes))
	}
}

func TestParse_MalformedDelimitersBecomeText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `<!-- wp:ns/a {"name": } -->`},
		{"non-object attrs", `<!-- wp:ns/a [1,2] -->`},
		{"trailing garbage", `<!-- wp:ns/a {"x":1} junk -->`},
		{"invalid name", `<!-- wp:NS/Upper -->`},
		{"closer with attrs", `<!-- /wp:ns/a {"x":1} -->`},
		{"stray closer", `<!-- /wp:ns/a -->`},
		{"plain comment", `<!-- just a comment -->`},
		{"unterminated comment", `<!-- wp:ns/a {"x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := Parse(tt.raw)
			if len(nodes) != 1 || !nodes[0].IsText() {
				t.Fatalf("expected a single text leaf, got %v", names(nodes))
			}
			if nodes[0].Text != tt.raw {
				t.Errorf("text = %q, want %q", nodes[0].Text, tt.raw)
			}
		})
	}
}

func TestParse_UnclosedOpenerClosesAtEnd(t *testing.T) {
	nodes := Parse(`<!-- wp:ns/a {"x":1} -->body`)
	if len(nodes) != 1 || nodes[0].Name != "ns/a" {
		t.Fatalf("nodes = %v", names(nodes))
	}
	if f, _ := nodes[0].Attrs["x"].Num(); f != 1 {
		t.Errorf("x = %v", nodes[0].Attrs["x"])
	}
	if len(nodes[0].Children) != 1 || nodes[0].Children[0].Text != "body" {
		t.Errorf("children = %+v", nodes[0].Children)
	}
}

func TestParse_CloserForAncestorClosesInnerBlocks(t *testing.T) {
	nodes := Parse(`<!-- wp:ns/outer --><!-- wp:ns/inner -->x<!-- /wp:ns/outer -->after`)

	got := names(nodes)
	want := []string{"ns/outer", "#text"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	inner := nodes[0].Children
	if len(inner) != 1 || inner[0].Name != "ns/inner" {
		t.Fatalf("outer children = %v", names(inner))
	}
}

func TestParse_MismatchedCloserIsText(t *testing.T) {
	nodes := Parse(`<!-- wp:ns/a -->x<!-- /wp:ns/b --><!-- /wp:ns/a -->`)
	if len(nodes) != 1 || nodes[0].Name != "ns/a" {
		t.Fatalf("nodes = %v", names(nodes))
	}
	children := nodes[0].Children
	if len(children) != 1 || children[0].Text != "x<!-- /wp:ns/b -->" {
		t.Errorf("children = %+v", children)
	}
}

func TestParse_IsDeterministic(t *testing.T) {
	raw := `a<!-- wp:ns/x {"k":{"z":1,"a":[true,null]}} -->b<!-- wp:ns/y /--><!-- /wp:ns/x --><!-- wp:broken {`

	first := Parse(raw)
	for i := 0; i < 20; i++ {
		if !reflect.DeepEqual(first, Parse(raw)) {
			t.Fatal("parse output differs between runs")
		}
	}
}

func TestParse_PreservesTextBytes(t *testing.T) {
	raw := "<p>a &amp; b</p>\r\n<!-- wp:ns/x /--><img src=x>"
	nodes := Parse(raw)
	if got := block.Text(nodes); got != "<p>a &amp; b</p>\r\n<img src=x>" {
		t.Errorf("text = %q", got)
	}
}

func TestParse_Empty(t *testing.T) {
	if nodes := Parse(""); len(nodes) != 0 {
		t.Errorf("expected no nodes, got %v", names(nodes))
	}
}

func TestParse_RawTextElementsDoNotHideDelimiters(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"unclosed textarea", `<p>Use a <textarea> tag</p><!-- wp:ns/b {"name":"Anna"} /-->`, []string{"#text", "ns/b"}},
		{"unclosed title", `<title>draft<!-- wp:ns/b /-->`, []string{"#text", "ns/b"}},
		{"unclosed style", `<style>p{}<!-- wp:ns/b /-->`, []string{"#text", "ns/b"}},
		{"plaintext", `<plaintext><!-- wp:ns/b /-->`, []string{"#text", "ns/b"}},
		{"script inside block", `<!-- wp:html --><script>var x=1;<!-- /wp:html --><!-- wp:ns/b {"name":"Anna"} /-->`, []string{"core/html", "ns/b"}},
		{"closed script", `<script>if (a<b) {}</script><!-- wp:ns/b /-->`, []string{"#text", "ns/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := Parse(tt.raw)
			if got := names(nodes); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("names = %v, want %v", got, tt.want)
			}
			if got := block.Names(nodes); got[len(got)-1] != "ns/b" {
				t.Errorf("block names = %v", got)
			}
		})
	}
}

func TestParse_ScriptBodyStaysInsideBlock(t *testing.T) {
	nodes := Parse(`<!-- wp:html --><script>var x=1;<!-- /wp:html -->`)
	if len(nodes) != 1 || nodes[0].Name != "core/html" {
		t.Fatalf("nodes = %v", names(nodes))
	}
	if got := block.Text(nodes[0].Children); got != "<script>var x=1;" {
		t.Errorf("inner text = %q", got)
	}
}
