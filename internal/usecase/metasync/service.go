// Package metasync keeps the metadata store in step with document saves.
package metasync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blockfield/internal/domain"
	"github.com/kailas-cloud/blockfield/internal/domain/block"
	"github.com/kailas-cloud/blockfield/internal/domain/document"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	"github.com/kailas-cloud/blockfield/internal/domain/value"
	"github.com/kailas-cloud/blockfield/internal/extract"
	"github.com/kailas-cloud/blockfield/internal/metrics"
	"github.com/kailas-cloud/blockfield/internal/parser"
)

// Service derives metadata entries from document content and writes them.
type Service struct {
	registry  *schema.Registry
	extractor *extract.Extractor
	store     MetadataWriter
	locks     *keyLock
	logger    *zap.Logger
}

// New creates a synchronizer.
func New(reg *schema.Registry, store MetadataWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: reg, extractor: extract.New(reg), store: store, locks: newKeyLock(), logger: logger}
}

// Sync parses raw, extracts the first occurrence of every registered block and
// writes a presence marker per block plus the persisted attributes of present
// blocks. Entry failures are reported in the Report; the returned error is
// reserved for invalid input and cancellation.
func (s *Service) Sync(ctx context.Context, docID, raw string, version int64) (dommeta.Report, error) {
	if err := document.ValidateID(docID); err != nil {
		return dommeta.Report{}, err
	}
	if version <= 0 {
		return dommeta.Report{}, fmt.Errorf("version %d: %w", version, domain.ErrInvalidVersion)
	}

	unlock := s.locks.Lock(docID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return dommeta.Report{}, fmt.Errorf("sync %s: %w", docID, err)
	}

	start := time.Now()
	entries := s.entries(parser.Parse(raw), version)
	results := s.store.Write(ctx, docID, entries)
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	report := dommeta.Report{DocumentID: docID, Version: version, Results: results}
	for _, r := range results {
		metrics.SyncEntriesTotal.WithLabelValues(string(r.Status())).Inc()
	}

	log := s.logger.With(zap.String("document_id", docID), zap.Int64("version", version))
	if err := report.Err(); err != nil {
		log.Warn("metadata sync incomplete",
			zap.Int("written", report.Written()),
			zap.Strings("failed", report.FailedKeys()),
			zap.Error(err),
		)
	} else {
		log.Debug("metadata synced",
			zap.Int("written", report.Written()),
			zap.Int("superseded", report.Superseded()),
		)
	}
	return report, nil
}

// Purge removes every entry of a document. It waits for a running sync of the same document.
func (s *Service) Purge(ctx context.Context, docID string) error {
	if err := document.ValidateID(docID); err != nil {
		return err
	}
	unlock := s.locks.Lock(docID)
	defer unlock()

	if err := s.store.Purge(ctx, docID); err != nil {
		return fmt.Errorf("purge %s: %w", docID, err)
	}
	s.logger.Info("metadata purged", zap.String("document_id", docID))
	return nil
}

func (s *Service) entries(nodes []block.Node, version int64) []dommeta.Entry {
	var out []dommeta.Entry
	blocks := s.registry.Blocks()
	for i, ex := range s.extractor.Registered(nodes) {
		blk := blocks[i]
		out = append(out, dommeta.Entry{
			Key:     dommeta.PresenceKey(blk.Name()),
			Value:   value.BoolOf(ex.Found),
			Version: version,
		})
		if !ex.Found {
			continue
		}
		for _, a := range ex.Attributes {
			decl, _ := blk.Attribute(a.Key)
			if !decl.Persisted() {
				continue
			}
			e := dommeta.Entry{Key: dommeta.AttributeKey(blk.Name(), a.Key), Value: a.Value, Version: version}
			if a.Err != nil {
				e.Mismatch = a.Err.Error()
			}
			out = append(out, e)
		}
	}
	return out
}
