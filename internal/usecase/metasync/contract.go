package metasync

import (
	"context"

	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
)

// MetadataWriter persists synchronized entries under the version guard.
type MetadataWriter interface {
	Write(ctx context.Context, docID string, entries []dommeta.Entry) []dommeta.WriteResult
	Purge(ctx context.Context, docID string) error
}

// Syncer is the synchronization contract driven by the save hook.
type Syncer interface {
	Sync(ctx context.Context, docID, raw string, version int64) (dommeta.Report, error)
	Purge(ctx context.Context, docID string) error
}
