// Package fieldpath parses projection field paths.
//
// Grammar:
//
//	block.attr     first occurrence, one attribute
//	block.*        first occurrence, every declared attribute
//	block[].attr   every occurrence, one attribute
//	block[].*      every occurrence, every declared attribute
package fieldpath

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
)

// Wildcard selects every declared attribute of a block.
const Wildcard = "*"

const allSuffix = "[]"

var attrRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Mode selects which occurrences of a block a path reads.
type Mode uint8

const (
	// First reads the first occurrence in document order.
	First Mode = iota
	// All reads every occurrence in document order.
	All
)

func (m Mode) String() string {
	if m == All {
		return "all"
	}
	return "first"
}

// Path is a parsed field path.
type Path struct {
	raw   string
	block string
	attr  string
	mode  Mode
}

// Parse parses a field path. Bare block names are qualified with the
// default namespace. Parse checks syntax only; see Resolve.
func Parse(raw string) (Path, error) {
	blockPart, attr, ok := strings.Cut(raw, ".")
	if !ok || blockPart == "" || attr == "" {
		return Path{}, fmt.Errorf("%q: expected block.attribute: %w", raw, domain.ErrInvalidFieldPath)
	}

	mode := First
	if strings.HasSuffix(blockPart, allSuffix) {
		mode = All
		blockPart = strings.TrimSuffix(blockPart, allSuffix)
	}

	name, valid := block.NormalizeName(blockPart)
	if !valid {
		return Path{}, fmt.Errorf("%q: invalid block name %q: %w", raw, blockPart, domain.ErrInvalidFieldPath)
	}
	if attr != Wildcard && !attrRegex.MatchString(attr) {
		return Path{}, fmt.Errorf("%q: invalid attribute %q: %w", raw, attr, domain.ErrInvalidFieldPath)
	}

	return Path{raw: raw, block: name, attr: attr, mode: mode}, nil
}

// Of builds a path from parts.
func Of(blockName, attr string, mode Mode) Path {
	p := Path{block: blockName, attr: attr, mode: mode}
	p.raw = p.Canonical()
	return p
}

// String returns the path exactly as the caller wrote it.
func (p Path) String() string { return p.raw }

// Canonical returns the normalized path used for deduplication.
func (p Path) Canonical() string {
	b := p.block
	if p.mode == All {
		b += allSuffix
	}
	return b + "." + p.attr
}

// Block returns the fully qualified block name.
func (p Path) Block() string { return p.block }

// Attr returns the attribute key, or Wildcard.
func (p Path) Attr() string { return p.attr }

// IsWildcard reports whether the path selects every attribute.
func (p Path) IsWildcard() bool { return p.attr == Wildcard }

// Mode returns the occurrence mode.
func (p Path) Mode() Mode { return p.mode }

// Resolve checks the path against the registry and returns the block schema.
func Resolve(p Path, reg *schema.Registry) (schema.Block, error) {
	s, ok := reg.Block(p.block)
	if !ok {
		return schema.Block{}, fmt.Errorf("%q: block %q: %w", p.raw, p.block, domain.ErrUnknownBlock)
	}
	if !p.IsWildcard() {
		if _, ok := s.Attribute(p.attr); !ok {
			return schema.Block{}, fmt.Errorf(
				"%q: attribute %q not declared for %q: %w", p.raw, p.attr, p.block, domain.ErrInvalidFieldPath,
			)
		}
	}
	return s, nil
}
