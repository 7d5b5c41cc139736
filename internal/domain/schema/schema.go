// Package schema describes the attributes declared for each block type.
package schema

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

var keyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// MaxAttributes is the maximum number of attributes per block schema.
const MaxAttributes = 128

// Attribute is an immutable attribute declaration.
type Attribute struct {
	key       string
	kind      value.Kind
	def       value.Value
	persisted bool
}

// NewAttribute validates and creates an Attribute.
// Key: ^[A-Za-z_][A-Za-z0-9_-]*$, max 64 chars. The default must be null or of the
// declared kind, and may not hold NaN or infinite numbers.
func NewAttribute(key string, kind value.Kind, def value.Value, persisted bool) (Attribute, error) {
	if key == "" {
		return Attribute{}, fmt.Errorf("attribute key is required: %w", domain.ErrInvalidSchema)
	}
	if len(key) > 64 {
		return Attribute{}, fmt.Errorf("attribute key %q too long (max 64): %w", key, domain.ErrInvalidSchema)
	}
	if !keyRegex.MatchString(key) {
		return Attribute{}, fmt.Errorf("attribute key %q has invalid characters: %w", key, domain.ErrInvalidSchema)
	}
	if kind == value.Null {
		return Attribute{}, fmt.Errorf("attribute %q: type is required: %w", key, domain.ErrInvalidSchema)
	}
	if !def.Finite() {
		return Attribute{}, fmt.Errorf("attribute %q: default %v is not finite: %w", key, def.Any(), domain.ErrInvalidSchema)
	}
	if !def.IsNull() && def.Kind() != kind {
		return Attribute{}, fmt.Errorf(
			"attribute %q: default is %s, declared %s: %w", key, def.Kind(), kind, domain.ErrInvalidSchema,
		)
	}
	return Attribute{key: key, kind: kind, def: def, persisted: persisted}, nil
}

// Key returns the attribute key.
func (a Attribute) Key() string { return a.key }

// Kind returns the declared semantic type.
func (a Attribute) Kind() value.Kind { return a.kind }

// Default returns the default value (null when none was declared).
func (a Attribute) Default() value.Value { return a.def }

// Persisted reports whether the synchronizer writes this attribute to the metadata store.
func (a Attribute) Persisted() bool { return a.persisted }

// Block is the immutable schema of one block type.
type Block struct {
	name  string
	attrs []Attribute
	index map[string]int
}

// NewBlock validates and creates a block schema. Attribute order is preserved.
func NewBlock(name string, attrs ...Attribute) (Block, error) {
	normalized, ok := block.NormalizeName(name)
	if !ok {
		return Block{}, fmt.Errorf("invalid block name %q: %w", name, domain.ErrInvalidSchema)
	}
	if len(attrs) > MaxAttributes {
		return Block{}, fmt.Errorf("block %q: too many attributes (max %d): %w", normalized, MaxAttributes, domain.ErrInvalidSchema)
	}

	index := make(map[string]int, len(attrs))
	list := make([]Attribute, len(attrs))
	for i, a := range attrs {
		if _, dup := index[a.key]; dup {
			return Block{}, fmt.Errorf("block %q: attribute %q: %w", normalized, a.key, domain.ErrDuplicateSchema)
		}
		index[a.key] = i
		list[i] = a
	}
	return Block{name: normalized, attrs: list, index: index}, nil
}

// Name returns the fully qualified block name.
func (b Block) Name() string { return b.name }

// Attributes returns the declared attributes in declaration order.
func (b Block) Attributes() []Attribute {
	out := make([]Attribute, len(b.attrs))
	copy(out, b.attrs)
	return out
}

// Attribute looks up an attribute declaration by key.
func (b Block) Attribute(key string) (Attribute, bool) {
	i, ok := b.index[key]
	if !ok {
		return Attribute{}, false
	}
	return b.attrs[i], true
}
