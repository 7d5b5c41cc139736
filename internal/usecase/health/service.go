package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates projections still work but something needs attention.
	Degraded Status = "degraded"
	// Unhealthy indicates the metadata store is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	CheckDatabase  = "database"
	CheckDocuments = "documents"
	CheckSyncQueue = "sync_queue"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db    DBPinger
	docs  DocumentChecker
	queue QueueMonitor
}

// New creates a Service. docs and queue can be nil.
func New(db DBPinger, docs DocumentChecker, queue QueueMonitor) *Service {
	return &Service{db: db, docs: docs, queue: queue}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[CheckDatabase] = result(s.db.Ping(ctx))

	if s.docs != nil {
		checks[CheckDocuments] = result(s.docs.HealthCheck(ctx))
	}

	// A full queue means saves are being dropped.
	if s.queue != nil {
		checks[CheckSyncQueue] = CheckOK
		if s.queue.Pending() >= s.queue.Capacity() {
			checks[CheckSyncQueue] = CheckError
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[CheckDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
