package schema

import (
	"fmt"

	"github.com/kailas-cloud/blockfield/internal/domain"
)

// Registry maps block names to their schemas. It is built once with a
// Builder and never changes afterwards, so it is safe for concurrent use.
type Registry struct {
	blocks map[string]Block
	order  []string
}

// Builder collects block schemas before the registry is frozen.
type Builder struct {
	blocks map[string]Block
	order  []string
	errs   []error
}

// NewBuilder creates an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{blocks: make(map[string]Block)}
}

// Register adds a block schema. A second registration of the same block
// name is an error; the error is also remembered and returned by Build.
func (b *Builder) Register(s Block) error {
	if s.name == "" {
		err := fmt.Errorf("register: empty block schema: %w", domain.ErrInvalidSchema)
		b.errs = append(b.errs, err)
		return err
	}
	if _, exists := b.blocks[s.name]; exists {
		err := fmt.Errorf("register %q: %w", s.name, domain.ErrDuplicateSchema)
		b.errs = append(b.errs, err)
		return err
	}
	b.blocks[s.name] = s
	b.order = append(b.order, s.name)
	return nil
}

// Build freezes the registry. It fails if any registration failed.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	blocks := make(map[string]Block, len(b.blocks))
	for k, v := range b.blocks {
		blocks[k] = v
	}
	order := make([]string, len(b.order))
	copy(order, b.order)
	return &Registry{blocks: blocks, order: order}, nil
}

// MustBuild is Build that panics on error. Intended for tests and static setups.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Block returns the schema registered for name.
func (r *Registry) Block(name string) (Block, bool) {
	s, ok := r.blocks[name]
	return s, ok
}

// Blocks returns all schemas in registration order.
func (r *Registry) Blocks() []Block {
	out := make([]Block, len(r.order))
	for i, n := range r.order {
		out[i] = r.blocks[n]
	}
	return out
}

// Names returns all registered block names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered blocks.
func (r *Registry) Len() int { return len(r.order) }
