package blockfield

import (
	domerr "github.com/kailas-cloud/blockfield/internal/domain"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	domproj "github.com/kailas-cloud/blockfield/internal/domain/projection"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
)

// Errors callers can match with errors.Is.
var (
	ErrDocumentNotFound   = domerr.ErrDocumentNotFound
	ErrInvalidDocumentID  = domerr.ErrInvalidDocumentID
	ErrInvalidVersion     = domerr.ErrInvalidVersion
	ErrDuplicateSchema    = domerr.ErrDuplicateSchema
	ErrBackendUnavailable = domerr.ErrBackendUnavailable
)

// Source says which storage path produced a field.
type Source string

// Field sources.
const (
	SourceMetadata Source = "metadata"
	SourceContent  Source = "content"
)

// Diagnostic is a non-fatal problem with one requested path.
type Diagnostic struct {
	Path    string
	Code    string
	Message string
}

// Field is one projected field. Value holds plain Go values:
// string, float64, bool, []any, map[string]any or nil.
type Field struct {
	Path        string
	Value       any
	Found       bool
	Source      Source
	Diagnostics []Diagnostic
}

// Result is the outcome of a projection.
type Result struct {
	DocumentID  string
	Version     int64
	Fields      []Field
	Diagnostics []Diagnostic
}

// Field returns the field for a path as it was requested.
func (r Result) Field(path string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return Field{}, false
}

// EntryFailure is a metadata entry that could not be written.
type EntryFailure struct {
	Key string
	Err error
}

// SyncReport lists the outcome of every metadata entry of one sync.
type SyncReport struct {
	DocumentID string
	Version    int64
	Written    []string
	Superseded []string
	Failed     []EntryFailure
}

// AttributeInfo describes one declared attribute.
type AttributeInfo struct {
	Key       string
	Type      string
	Default   any
	Persisted bool
}

// BlockInfo describes one registered block.
type BlockInfo struct {
	Name       string
	Attributes []AttributeInfo
}

func resultFromDomain(res domproj.Result) Result {
	out := Result{
		DocumentID:  res.DocumentID,
		Version:     res.Version,
		Fields:      make([]Field, 0, len(res.Fields)),
		Diagnostics: diagnosticsFromDomain(res.Diagnostics),
	}
	for _, f := range res.Fields {
		out.Fields = append(out.Fields, Field{
			Path:        f.Path,
			Value:       f.Value.Any(),
			Found:       f.Found,
			Source:      Source(f.Source),
			Diagnostics: diagnosticsFromDomain(f.Diagnostics),
		})
	}
	return out
}

func diagnosticsFromDomain(ds []domproj.Diagnostic) []Diagnostic {
	if len(ds) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(ds))
	for i, d := range ds {
		out[i] = Diagnostic{Path: d.Path, Code: string(d.Code), Message: d.Message}
	}
	return out
}

func reportFromDomain(r dommeta.Report) SyncReport {
	out := SyncReport{DocumentID: r.DocumentID, Version: r.Version}
	for _, res := range r.Results {
		switch res.Status() {
		case dommeta.StatusWritten:
			out.Written = append(out.Written, res.Key())
		case dommeta.StatusSuperseded:
			out.Superseded = append(out.Superseded, res.Key())
		case dommeta.StatusFailed:
			out.Failed = append(out.Failed, EntryFailure{Key: res.Key(), Err: res.Err()})
		}
	}
	return out
}

func blocksFromRegistry(reg *schema.Registry) []BlockInfo {
	out := make([]BlockInfo, 0, reg.Len())
	for _, b := range reg.Blocks() {
		info := BlockInfo{Name: b.Name()}
		for _, a := range b.Attributes() {
			info.Attributes = append(info.Attributes, AttributeInfo{
				Key:       a.Key(),
				Type:      a.Kind().String(),
				Default:   a.Default().Any(),
				Persisted: a.Persisted(),
			})
		}
		out = append(out, info)
	}
	return out
}
