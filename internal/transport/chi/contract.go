package chi

import (
	"context"

	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	domproj "github.com/kailas-cloud/blockfield/internal/domain/projection"
	healthuc "github.com/kailas-cloud/blockfield/internal/usecase/health"
)

// Projector answers field projection queries.
type Projector interface {
	Project(ctx context.Context, docID string, paths []string) (domproj.Result, error)
}

// Synchronizer writes and removes document metadata.
type Synchronizer interface {
	Sync(ctx context.Context, docID, raw string, version int64) (dommeta.Report, error)
	Purge(ctx context.Context, docID string) error
}

// Notifier schedules background synchronization.
type Notifier interface {
	Notify(docID, raw string, version int64) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
