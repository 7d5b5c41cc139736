// Package parser turns serialized document content into a block tree.
//
// Blocks are delimited by HTML comments:
//
//	<!-- wp:ns/name {"attr":"value"} -->inner content<!-- /wp:ns/name -->
//	<!-- wp:ns/name {"attr":"value"} /-->
//
// Everything else is kept as plain-text leaves. Parsing never fails: a
// delimiter that cannot be understood is treated as text.
package parser

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

const (
	commentOpen  = "<!--"
	commentClose = "-->"
	delimPrefix  = "wp:"
)

type delimKind uint8

const (
	delimOpener delimKind = iota
	delimCloser
	delimVoid
)

type delimiter struct {
	kind  delimKind
	name  string
	attrs map[string]value.Value
}

// frame is an open block on the parse stack. The bottom frame is the
// document itself and has no name.
type frame struct {
	name     string
	attrs    map[string]value.Value
	children []block.Node
}

func (f *frame) appendText(s string) {
	if s == "" {
		return
	}
	if n := len(f.children); n > 0 && f.children[n-1].IsText() {
		f.children[n-1].Text += s
		return
	}
	f.children = append(f.children, block.Node{Text: s})
}

func (f *frame) node() block.Node {
	return block.Node{Name: f.name, Attrs: f.attrs, Children: f.children}
}

// Parse returns the top-level nodes of raw in document order.
// The result depends only on raw.
func Parse(raw string) []block.Node {
	z := html.NewTokenizer(strings.NewReader(raw))
	stack := []*frame{{}}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// Trailing bytes of an unterminated construct are still content.
			stack[len(stack)-1].appendText(string(z.Raw()))
			break
		}

		if tt == html.StartTagToken {
			// Delimiters stay visible after <script>, <textarea> and other
			// raw text elements, closed or not.
			z.NextIsNotRawText()
		}

		tok := string(z.Raw())
		top := stack[len(stack)-1]

		if tt != html.CommentToken {
			top.appendText(tok)
			continue
		}

		d, ok := parseDelimiter(tok)
		if !ok {
			top.appendText(tok)
			continue
		}

		switch d.kind {
		case delimVoid:
			top.children = append(top.children, block.Node{Name: d.name, Attrs: d.attrs})
		case delimOpener:
			stack = append(stack, &frame{name: d.name, attrs: d.attrs})
		case delimCloser:
			idx := openIndex(stack, d.name)
			if idx < 0 {
				top.appendText(tok)
				continue
			}
			stack = closeTo(stack, idx)
		}
	}

	// Openers without a closer end where the input ends.
	stack = closeTo(stack, 1)
	return stack[0].children
}

// openIndex finds the innermost open frame named name. Returns -1 if none.
func openIndex(stack []*frame, name string) int {
	for i := len(stack) - 1; i >= 1; i-- {
		if stack[i].name == name {
			return i
		}
	}
	return -1
}

// closeTo pops frames down to and including index idx, attaching each to its parent.
func closeTo(stack []*frame, idx int) []*frame {
	for len(stack) > idx && len(stack) > 1 {
		n := len(stack) - 1
		child := stack[n]
		stack = stack[:n]
		parent := stack[n-1]
		parent.children = append(parent.children, child.node())
	}
	return stack
}

// parseDelimiter interprets the raw bytes of an HTML comment token.
func parseDelimiter(tok string) (delimiter, bool) {
	if !strings.HasPrefix(tok, commentOpen) || !strings.HasSuffix(tok, commentClose) ||
		len(tok) < len(commentOpen)+len(commentClose) {
		return delimiter{}, false
	}
	body := strings.TrimSpace(tok[len(commentOpen) : len(tok)-len(commentClose)])

	kind := delimOpener
	if strings.HasPrefix(body, "/") {
		kind = delimCloser
		body = body[1:]
	}
	if !strings.HasPrefix(body, delimPrefix) {
		return delimiter{}, false
	}
	body = body[len(delimPrefix):]

	name, rest := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, rest = body[:i], strings.TrimSpace(body[i:])
	}

	if strings.HasSuffix(name, "/") && rest == "" {
		// "<!-- wp:name/-->" has no separating space before the slash.
		name = strings.TrimSuffix(name, "/")
		rest = "/"
	}
	if strings.HasSuffix(rest, "/") {
		if kind == delimCloser {
			return delimiter{}, false
		}
		kind = delimVoid
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "/"))
	}

	normalized, ok := block.NormalizeName(name)
	if !ok {
		return delimiter{}, false
	}

	d := delimiter{kind: kind, name: normalized}
	if rest == "" {
		return d, true
	}
	if kind == delimCloser {
		return delimiter{}, false
	}
	attrs, ok := parseAttrs(rest)
	if !ok {
		return delimiter{}, false
	}
	d.attrs = attrs
	return d, true
}

// parseAttrs decodes a JSON object of block attributes.
func parseAttrs(s string) (map[string]value.Value, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	attrs := make(map[string]value.Value, len(m))
	for k, v := range m {
		attrs[k] = value.FromAny(v)
	}
	return attrs, true
}
