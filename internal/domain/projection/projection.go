// Package projection holds the request and result types of field projection.
package projection

import (
	"errors"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/fieldpath"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// Source records which storage path produced a field value.
type Source string

const (
	// SourceNone marks a field that was not resolved.
	SourceNone Source = ""
	// SourceMetadata is the synchronized metadata store (fast path).
	SourceMetadata Source = "metadata"
	// SourceContent is a live parse of the document body (slow path).
	SourceContent Source = "content"
)

// Code classifies a diagnostic.
type Code string

// Diagnostic codes.
const (
	CodeInvalidPath      Code = "invalid_path"
	CodeUnknownBlock     Code = "unknown_block"
	CodeUnknownAttribute Code = "unknown_attribute"
	CodeTypeMismatch     Code = "type_mismatch"
	CodeBlockNotFound    Code = "block_not_found"
)

// Diagnostic is a non-fatal problem attached to a path.
type Diagnostic struct {
	Path    string
	Code    Code
	Message string
}

// Request is a validated projection request.
type Request struct {
	documentID  string
	paths       []fieldpath.Path
	diagnostics []Diagnostic
	defaulted   bool
}

// NewRequest parses raw paths, drops invalid or unknown ones with a
// diagnostic, and removes duplicates (first spelling wins).
// An empty raw list selects every registered block with a wildcard.
func NewRequest(documentID string, raws []string, reg *schema.Registry) Request {
	req := Request{documentID: documentID}
	if len(raws) == 0 {
		req.defaulted = true
		for _, name := range reg.Names() {
			req.paths = append(req.paths, fieldpath.Of(name, fieldpath.Wildcard, fieldpath.First))
		}
		return req
	}

	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		p, err := fieldpath.Parse(raw)
		if err != nil {
			req.diagnostics = append(req.diagnostics, Diagnostic{Path: raw, Code: CodeInvalidPath, Message: err.Error()})
			continue
		}
		if _, err := fieldpath.Resolve(p, reg); err != nil {
			code := CodeUnknownAttribute
			if errors.Is(err, domain.ErrUnknownBlock) {
				code = CodeUnknownBlock
			}
			req.diagnostics = append(req.diagnostics, Diagnostic{Path: raw, Code: code, Message: err.Error()})
			continue
		}
		if seen[p.Canonical()] {
			continue
		}
		seen[p.Canonical()] = true
		req.paths = append(req.paths, p)
	}
	return req
}

// IsDefault reports whether the caller supplied no paths. Default requests
// omit blocks that are absent from the document.
func (r Request) IsDefault() bool { return r.defaulted }

// DocumentID returns the target document.
func (r Request) DocumentID() string { return r.documentID }

// Paths returns the valid, deduplicated paths in request order.
func (r Request) Paths() []fieldpath.Path {
	out := make([]fieldpath.Path, len(r.paths))
	copy(out, r.paths)
	return out
}

// Diagnostics returns the per-path problems found while parsing.
func (r Request) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// Field is the resolution of one requested path.
type Field struct {
	Path        string
	Value       value.Value
	Found       bool
	Source      Source
	Diagnostics []Diagnostic
}

// NotFound creates an unresolved field.
func NotFound(path string, src Source) Field {
	return Field{Path: path, Source: src}
}

// Result is the outcome of a projection.
type Result struct {
	DocumentID  string
	Version     int64
	Fields      []Field
	Diagnostics []Diagnostic
}

// Field looks up the resolution of a path by its requested spelling.
func (r Result) Field(path string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return Field{}, false
}
