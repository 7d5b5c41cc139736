package health

import "context"

// DBPinger checks metadata store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// DocumentChecker checks document source availability.
type DocumentChecker interface {
	HealthCheck(ctx context.Context) error
}

// QueueMonitor reports the save hook backlog.
type QueueMonitor interface {
	Pending() int
	Capacity() int
}
