package metadata

import (
	"errors"
	"fmt"
)

// WriteStatus is the outcome of writing a single entry.
type WriteStatus string

// Write outcomes.
const (
	StatusWritten WriteStatus = "written"
	// StatusSuperseded means a newer version was already stored; the write was discarded.
	StatusSuperseded WriteStatus = "superseded"
	StatusFailed     WriteStatus = "failed"
)

// WriteResult is the outcome of one entry write.
type WriteResult struct {
	key    string
	status WriteStatus
	err    error
}

// NewWritten creates a successful write result.
func NewWritten(key string) WriteResult { return WriteResult{key: key, status: StatusWritten} }

// NewSuperseded creates a discarded-as-older write result.
func NewSuperseded(key string) WriteResult { return WriteResult{key: key, status: StatusSuperseded} }

// NewFailed creates a failed write result.
func NewFailed(key string, err error) WriteResult {
	return WriteResult{key: key, status: StatusFailed, err: err}
}

// Key returns the entry key.
func (r WriteResult) Key() string { return r.key }

// Status returns the write outcome.
func (r WriteResult) Status() WriteStatus { return r.status }

// Err returns the write error, if any.
func (r WriteResult) Err() error { return r.err }

// Report summarizes one synchronization run.
type Report struct {
	DocumentID string
	Version    int64
	Results    []WriteResult
}

// Written returns the number of entries that were applied.
func (r Report) Written() int { return r.count(StatusWritten) }

// Superseded returns the number of entries discarded because newer data was stored.
func (r Report) Superseded() int { return r.count(StatusSuperseded) }

// FailedKeys returns the keys whose write failed, in write order.
func (r Report) FailedKeys() []string {
	var keys []string
	for _, res := range r.Results {
		if res.status == StatusFailed {
			keys = append(keys, res.key)
		}
	}
	return keys
}

// Err joins every entry failure, or returns nil when all writes succeeded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.status == StatusFailed {
			errs = append(errs, fmt.Errorf("%s: %w", res.key, res.err))
		}
	}
	return errors.Join(errs...)
}

func (r Report) count(s WriteStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.status == s {
			n++
		}
	}
	return n
}
