package projection

import (
	"context"

	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
)

// DocumentSource is the read-only accessor of the external document store.
type DocumentSource interface {
	// Version returns the current save version, or domain.ErrDocumentNotFound.
	Version(ctx context.Context, id string) (int64, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
}

// MetadataReader reads the synchronized entries of a document in one round trip.
type MetadataReader interface {
	Load(ctx context.Context, docID string) (dommeta.Set, error)
}
