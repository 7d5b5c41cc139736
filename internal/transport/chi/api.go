package chi

import (
	"github.com/kailas-cloud/blockfield/internal/domain/value"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeDocumentNotFound   ErrorCode = "document_not_found"
	CodeInvalidDocumentID  ErrorCode = "invalid_document_id"
	CodeInvalidVersion     ErrorCode = "invalid_version"
	CodeSyncQueueFull      ErrorCode = "sync_queue_full"
	CodeBackendUnavailable ErrorCode = "backend_unavailable"
	CodeTimeout            ErrorCode = "timeout"
	CodeRequestCanceled    ErrorCode = "request_canceled"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// FieldResponse is one projected field.
type FieldResponse struct {
	Value  value.Value `json:"value"`
	Found  bool        `json:"found"`
	Source string      `json:"source,omitempty"`
}

// DiagnosticResponse is a non-fatal per-path problem.
type DiagnosticResponse struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProjectionResponse is the body of GET /documents/{id}/fields.
type ProjectionResponse struct {
	DocumentID  string                   `json:"document_id"`
	Version     int64                    `json:"version"`
	Fields      map[string]FieldResponse `json:"fields"`
	Diagnostics []DiagnosticResponse     `json:"diagnostics"`
}

// SyncRequest is the body of POST /documents/{id}/sync.
type SyncRequest struct {
	Content string `json:"content"`
	Version int64  `json:"version"`
}

// SyncAccepted is returned when a sync is queued.
type SyncAccepted struct {
	DocumentID string `json:"document_id"`
	Version    int64  `json:"version"`
	Status     string `json:"status"`
}

// EntryFailure is a metadata entry that could not be written.
type EntryFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// SyncReport is returned by a synchronous sync.
type SyncReport struct {
	DocumentID string         `json:"document_id"`
	Version    int64          `json:"version"`
	Written    []string       `json:"written"`
	Superseded []string       `json:"superseded"`
	Failed     []EntryFailure `json:"failed"`
}

// AttributeSchema describes one declared attribute.
type AttributeSchema struct {
	Key       string      `json:"key"`
	Type      string      `json:"type"`
	Default   value.Value `json:"default"`
	Persisted bool        `json:"persisted"`
}

// BlockSchema describes one registered block.
type BlockSchema struct {
	Name       string            `json:"name"`
	Attributes []AttributeSchema `json:"attributes"`
}

// SchemaResponse is the body of GET /schema.
type SchemaResponse struct {
	Blocks []BlockSchema `json:"blocks"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
