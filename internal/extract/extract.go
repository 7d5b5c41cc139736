// Package extract pulls typed attribute values out of a parsed block tree.
package extract

import (
	"fmt"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// Attribute is one extracted attribute.
type Attribute struct {
	Key   string
	Value value.Value
	// Found is false when the block has no usable value and the schema
	// declares no default, or when the value does not match the schema.
	Found bool
	// Defaulted is true when Value came from the schema default.
	Defaulted bool
	// Err is a schema mismatch for a value that could not be coerced.
	Err error
}

// Extraction is the attribute mapping of one block occurrence.
type Extraction struct {
	Block      string
	Found      bool
	Attributes []Attribute
}

// Get returns the extracted attribute for key.
func (e Extraction) Get(key string) (Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}

// Object returns every found attribute as an object value.
func (e Extraction) Object() value.Value {
	m := make(map[string]value.Value, len(e.Attributes))
	for _, a := range e.Attributes {
		if a.Found {
			m[a.Key] = a.Value
		}
	}
	return value.ObjectOf(m)
}

// Mismatches returns the attributes that carry a schema mismatch.
func (e Extraction) Mismatches() []Attribute {
	var out []Attribute
	for _, a := range e.Attributes {
		if a.Err != nil {
			out = append(out, a)
		}
	}
	return out
}

// Extractor applies registered schemas to block trees. It holds no mutable state.
type Extractor struct {
	registry *schema.Registry
}

// New creates an extractor bound to a registry.
func New(reg *schema.Registry) *Extractor {
	return &Extractor{registry: reg}
}

// First extracts the first occurrence of blockName in document order.
// An absent block yields an Extraction with Found=false and no error.
func (x *Extractor) First(nodes []block.Node, blockName string) (Extraction, error) {
	s, ok := x.registry.Block(blockName)
	if !ok {
		return Extraction{}, fmt.Errorf("extract %q: %w", blockName, domain.ErrUnknownBlock)
	}
	return First(nodes, s), nil
}

// All extracts every occurrence of blockName in document order.
func (x *Extractor) All(nodes []block.Node, blockName string) ([]Extraction, error) {
	s, ok := x.registry.Block(blockName)
	if !ok {
		return nil, fmt.Errorf("extract %q: %w", blockName, domain.ErrUnknownBlock)
	}
	return All(nodes, s), nil
}

// Registered extracts the first occurrence of every registered block in one
// walk. The result follows registry order; absent blocks have Found=false.
func (x *Extractor) Registered(nodes []block.Node) []Extraction {
	blocks := x.registry.Blocks()
	out := make([]Extraction, len(blocks))
	pending := make(map[string]int, len(blocks))
	for i, s := range blocks {
		out[i] = Extraction{Block: s.Name()}
		pending[s.Name()] = i
	}
	block.Walk(nodes, func(n *block.Node) bool {
		if i, ok := pending[n.Name]; ok {
			out[i] = apply(n, blocks[i])
			delete(pending, n.Name)
		}
		return len(pending) > 0
	})
	return out
}

// First extracts the first occurrence of the schema's block.
func First(nodes []block.Node, s schema.Block) Extraction {
	var match *block.Node
	block.Walk(nodes, func(n *block.Node) bool {
		if n.Name == s.Name() {
			match = n
			return false
		}
		return true
	})
	if match == nil {
		return Extraction{Block: s.Name()}
	}
	return apply(match, s)
}

// All extracts every occurrence of the schema's block, depth-first.
func All(nodes []block.Node, s schema.Block) []Extraction {
	var out []Extraction
	block.Walk(nodes, func(n *block.Node) bool {
		if n.Name == s.Name() {
			out = append(out, apply(n, s))
		}
		return true
	})
	return out
}

func apply(n *block.Node, s schema.Block) Extraction {
	decl := s.Attributes()
	ex := Extraction{Block: s.Name(), Found: true, Attributes: make([]Attribute, len(decl))}
	for i, a := range decl {
		ex.Attributes[i] = resolve(n.Attrs, a)
	}
	return ex
}

// resolve types one attribute. Missing or null values take the default.
// Values that cannot be coerced losslessly resolve to null with a mismatch.
func resolve(attrs map[string]value.Value, a schema.Attribute) Attribute {
	out := Attribute{Key: a.Key()}

	raw, ok := attrs[a.Key()]
	if ok && !raw.IsNull() {
		if v, ok := value.Coerce(raw, a.Kind()); ok {
			out.Value, out.Found = v, true
			return out
		}
		out.Err = domain.NewMismatch(a.Key(), a.Kind().String(), raw.Kind().String())
		return out
	}

	if def := a.Default(); !def.IsNull() {
		out.Value, out.Found, out.Defaulted = def, true, true
	}
	return out
}
