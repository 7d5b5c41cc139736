// Package projection answers field projection queries from synchronized
// metadata, falling back to a live parse of the document body.
package projection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/document"
	"github.com/kailas-cloud/blockfield/internal/domain/fieldpath"
	domproj "github.com/kailas-cloud/blockfield/internal/domain/projection"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/extract"
	"github.com/kailas-cloud/blockfield/internal/metrics"
	"github.com/kailas-cloud/blockfield/internal/parser"
)

// Engine resolves projection requests. It never writes.
type Engine struct {
	registry  *schema.Registry
	extractor *extract.Extractor
	docs      DocumentSource
	meta      MetadataReader
	logger    *zap.Logger
	loads     singleflight.Group
}

// New creates a projection engine.
func New(reg *schema.Registry, docs DocumentSource, meta MetadataReader, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: reg, extractor: extract.New(reg), docs: docs, meta: meta, logger: logger}
}

// Project returns the requested fields of a document. Unknown or malformed
// paths are dropped with a diagnostic. An empty path list selects every
// registered block; blocks absent from the document are then omitted.
//
// The only data condition that fails the call is a missing document.
func (e *Engine) Project(ctx context.Context, docID string, paths []string) (domproj.Result, error) {
	start := time.Now()
	defer func() { metrics.ProjectionDuration.Observe(time.Since(start).Seconds()) }()

	if err := document.ValidateID(docID); err != nil {
		return domproj.Result{}, err
	}
	req := domproj.NewRequest(docID, paths, e.registry)

	version, err := e.docs.Version(ctx, docID)
	if err != nil {
		return domproj.Result{}, fmt.Errorf("document version: %w", err)
	}

	r := &resolver{ctx: ctx, engine: e, docID: docID, version: version}
	if needsMetadata(req.Paths()) {
		if r.meta, err = e.meta.Load(ctx, docID); err != nil {
			return domproj.Result{}, fmt.Errorf("load metadata: %w", err)
		}
	}

	res := domproj.Result{DocumentID: docID, Version: version, Diagnostics: req.Diagnostics()}
	for _, p := range req.Paths() {
		f, present, err := r.resolve(p)
		if err != nil {
			return domproj.Result{}, err
		}
		if req.IsDefault() && !present {
			continue
		}
		metrics.ProjectionFieldsTotal.WithLabelValues(sourceLabel(f)).Inc()
		res.Fields = append(res.Fields, f)
	}

	e.logger.Debug("projection resolved",
		zap.String("document_id", docID),
		zap.Int64("version", version),
		zap.Int("fields", len(res.Fields)),
		zap.Bool("parsed", r.parsed),
	)
	return res, nil
}

// load fetches and parses a document body. Concurrent loads of the same
// document version share one fetch and parse.
func (e *Engine) load(ctx context.Context, docID string, version int64) ([]block.Node, error) {
	key := docID + "@" + strconv.FormatInt(version, 10)
	ch := e.loads.DoChan(key, func() (any, error) {
		// Detached so one caller leaving does not fail the others.
		doc, err := e.docs.Get(context.WithoutCancel(ctx), docID)
		if err != nil {
			return nil, fmt.Errorf("get document: %w", err)
		}
		return parser.Parse(doc.Content()), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		metrics.ProjectionParsesTotal.WithLabelValues(strconv.FormatBool(res.Shared)).Inc()
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]block.Node), nil
	}
}

func needsMetadata(paths []fieldpath.Path) bool {
	for _, p := range paths {
		if p.Mode() == fieldpath.First {
			return true
		}
	}
	return false
}

func sourceLabel(f domproj.Field) string {
	if !f.Found {
		return "missing"
	}
	return string(f.Source)
}
