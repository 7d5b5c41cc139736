package projection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/fieldpath"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	domproj "github.com/kailas-cloud/blockfield/internal/domain/projection"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
	"github.com/kailas-cloud/blockfield/internal/extract"
)

// resolver serves one request: fresh metadata first, then a lazily parsed
// body. The body is loaded at most once and extractions are memoized per block.
type resolver struct {
	ctx     context.Context
	engine  *Engine
	docID   string
	version int64
	meta    dommeta.Set

	nodes  []block.Node
	parsed bool
	first  map[string]extract.Extraction
	all    map[string][]extract.Extraction
}

// resolve returns the field for p and whether its block is present in the document.
func (r *resolver) resolve(p fieldpath.Path) (domproj.Field, bool, error) {
	s, ok := r.engine.registry.Block(p.Block())
	if !ok {
		// Request validation already dropped unknown blocks.
		return domproj.NotFound(p.String(), domproj.SourceNone), false, nil
	}
	if p.Mode() == fieldpath.All {
		return r.fromContentAll(p, s)
	}
	if f, present, ok := r.fromMetadata(p, s); ok {
		return f, present, nil
	}
	return r.fromContent(p, s)
}

// fromMetadata resolves a first-occurrence path from fresh entries. ok is
// false when any entry needed is absent, stale or unusable.
func (r *resolver) fromMetadata(p fieldpath.Path, s schema.Block) (domproj.Field, bool, bool) {
	presence, ok := r.meta.Lookup(dommeta.PresenceKey(s.Name()), r.version)
	if !ok {
		return domproj.Field{}, false, false
	}
	present, ok := presence.Value.Bool()
	if !ok {
		return domproj.Field{}, false, false
	}
	if !present {
		return blockNotFound(p, s, domproj.SourceMetadata), false, true
	}

	if !p.IsWildcard() {
		a, _ := s.Attribute(p.Attr())
		if !a.Persisted() {
			return domproj.Field{}, false, false
		}
		e, ok := r.meta.Lookup(dommeta.AttributeKey(s.Name(), a.Key()), r.version)
		if !ok {
			return domproj.Field{}, false, false
		}
		f := domproj.Field{Path: p.String(), Value: e.Value, Found: !e.Value.IsNull(), Source: domproj.SourceMetadata}
		if e.Mismatch != "" {
			f.Value, f.Found = value.NullValue(), false
			f.Diagnostics = append(f.Diagnostics, mismatch(p.String(), e.Mismatch))
		}
		return f, true, true
	}

	obj := make(map[string]value.Value, len(s.Attributes()))
	f := domproj.Field{Path: p.String(), Found: true, Source: domproj.SourceMetadata}
	for _, a := range s.Attributes() {
		if !a.Persisted() {
			return domproj.Field{}, false, false
		}
		e, ok := r.meta.Lookup(dommeta.AttributeKey(s.Name(), a.Key()), r.version)
		if !ok {
			return domproj.Field{}, false, false
		}
		if e.Mismatch != "" {
			f.Diagnostics = append(f.Diagnostics, mismatch(p.String(), e.Mismatch))
			continue
		}
		if !e.Value.IsNull() {
			obj[a.Key()] = e.Value
		}
	}
	f.Value = value.ObjectOf(obj)
	return f, true, true
}

func (r *resolver) fromContent(p fieldpath.Path, s schema.Block) (domproj.Field, bool, error) {
	ex, err := r.firstOf(s)
	if err != nil {
		return domproj.Field{}, false, err
	}
	if !ex.Found {
		return blockNotFound(p, s, domproj.SourceContent), false, nil
	}

	f := domproj.Field{Path: p.String(), Source: domproj.SourceContent}
	if p.IsWildcard() {
		f.Value, f.Found = ex.Object(), true
		for _, a := range ex.Mismatches() {
			f.Diagnostics = append(f.Diagnostics, mismatch(p.String(), a.Err.Error()))
		}
		return f, true, nil
	}

	a, _ := ex.Get(p.Attr())
	f.Value, f.Found = a.Value, a.Found
	if a.Err != nil {
		f.Diagnostics = append(f.Diagnostics, mismatch(p.String(), a.Err.Error()))
	}
	return f, true, nil
}

// fromContentAll resolves an all-matches path. Metadata only holds first
// occurrences, so these always read the body. The value is a list with one
// item per occurrence in document order.
func (r *resolver) fromContentAll(p fieldpath.Path, s schema.Block) (domproj.Field, bool, error) {
	exs, err := r.allOf(s)
	if err != nil {
		return domproj.Field{}, false, err
	}

	items := make([]value.Value, 0, len(exs))
	f := domproj.Field{Path: p.String(), Source: domproj.SourceContent, Found: len(exs) > 0}
	for _, ex := range exs {
		if p.IsWildcard() {
			items = append(items, ex.Object())
			for _, a := range ex.Mismatches() {
				f.Diagnostics = append(f.Diagnostics, mismatch(p.String(), a.Err.Error()))
			}
			continue
		}
		a, _ := ex.Get(p.Attr())
		items = append(items, a.Value)
		if a.Err != nil {
			f.Diagnostics = append(f.Diagnostics, mismatch(p.String(), a.Err.Error()))
		}
	}
	f.Value = value.ListOf(items...)
	if !f.Found {
		f.Diagnostics = append(f.Diagnostics, notFoundDiagnostic(p, s))
	}
	return f, f.Found, nil
}

func (r *resolver) tree() ([]block.Node, error) {
	if r.parsed {
		return r.nodes, nil
	}
	nodes, err := r.engine.load(r.ctx, r.docID, r.version)
	if err != nil {
		return nil, err
	}
	r.nodes, r.parsed = nodes, true
	return nodes, nil
}

func (r *resolver) firstOf(s schema.Block) (extract.Extraction, error) {
	if ex, ok := r.first[s.Name()]; ok {
		return ex, nil
	}
	nodes, err := r.tree()
	if err != nil {
		return extract.Extraction{}, err
	}
	ex, err := r.engine.extractor.First(nodes, s.Name())
	if err != nil {
		return extract.Extraction{}, err
	}
	if r.first == nil {
		r.first = make(map[string]extract.Extraction)
	}
	r.first[s.Name()] = ex
	return ex, nil
}

func (r *resolver) allOf(s schema.Block) ([]extract.Extraction, error) {
	if exs, ok := r.all[s.Name()]; ok {
		return exs, nil
	}
	nodes, err := r.tree()
	if err != nil {
		return nil, err
	}
	exs, err := r.engine.extractor.All(nodes, s.Name())
	if err != nil {
		return nil, err
	}
	if r.all == nil {
		r.all = make(map[string][]extract.Extraction)
	}
	r.all[s.Name()] = exs
	return exs, nil
}

func blockNotFound(p fieldpath.Path, s schema.Block, src domproj.Source) domproj.Field {
	f := domproj.NotFound(p.String(), src)
	f.Diagnostics = []domproj.Diagnostic{notFoundDiagnostic(p, s)}
	return f
}

func notFoundDiagnostic(p fieldpath.Path, s schema.Block) domproj.Diagnostic {
	return domproj.Diagnostic{
		Path:    p.String(),
		Code:    domproj.CodeBlockNotFound,
		Message: fmt.Errorf("%s: %w", s.Name(), domain.ErrBlockNotFound).Error(),
	}
}

func mismatch(path, msg string) domproj.Diagnostic {
	return domproj.Diagnostic{Path: path, Code: domproj.CodeTypeMismatch, Message: msg}
}
