package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blockfield/internal/db"
	"github.com/kailas-cloud/blockfield/internal/domain"
	dommeta "github.com/kailas-cloud/blockfield/internal/domain/metadata"
	domproj "github.com/kailas-cloud/blockfield/internal/domain/projection"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	logpkg "github.com/kailas-cloud/blockfield/internal/logger"
	"github.com/kailas-cloud/blockfield/internal/metrics"
	healthuc "github.com/kailas-cloud/blockfield/internal/usecase/health"
	"github.com/kailas-cloud/blockfield/internal/worker"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// statusClientClosedRequest reports a request abandoned by the client.
// Nothing reads the body; the status only shows up in logs and metrics.
const statusClientClosedRequest = 499

// Server serves the projection, sync and schema API.
type Server struct {
	projector     Projector
	syncer        Synchronizer
	notifier      Notifier
	registry      *schema.Registry
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	projector Projector,
	syncer Synchronizer,
	notifier Notifier,
	registry *schema.Registry,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		projector: projector,
		syncer:    syncer,
		notifier:  notifier,
		registry:  registry,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrInvalidDocumentID, http.StatusBadRequest, CodeInvalidDocumentID),
		sentinelHandler(domain.ErrInvalidVersion, http.StatusBadRequest, CodeInvalidVersion),
		sentinelHandler(context.Canceled, statusClientClosedRequest, CodeRequestCanceled),
		queueFullHandler,
		backendHandler,
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
	}
	return s
}

// Routes registers the API on r. Document IDs containing "/" must be sent
// percent-encoded; chi matches on the raw path.
func (s *Server) Routes(r chi.Router) {
	r.Get("/documents/{id}/fields", s.GetFields)
	r.Post("/documents/{id}/sync", s.SyncDocument)
	r.Delete("/documents/{id}/metadata", s.PurgeDocument)
	r.Get("/schema", s.GetSchema)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
}

// GetFields handles GET /documents/{id}/fields.
func (s *Server) GetFields(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var raw []string
	if err := runtime.BindQueryParameter("form", true, false, "fields", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid fields parameter")
		return
	}

	res, err := s.projector.Project(logpkg.WithDocument(r.Context(), id), id, splitFields(raw))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, NewProjectionResponse(res))
}

// SyncDocument handles POST /documents/{id}/sync. The sync is queued unless
// wait=true, in which case the write report is returned.
func (s *Server) SyncDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var wait bool
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid wait parameter")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Version <= 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidVersion, "version must be positive")
		return
	}

	if !wait {
		if err := s.notifier.Notify(id, req.Content, req.Version); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, SyncAccepted{DocumentID: id, Version: req.Version, Status: "queued"})
		return
	}

	report, err := s.syncer.Sync(logpkg.WithDocument(r.Context(), id), id, req.Content, req.Version)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// PurgeDocument handles DELETE /documents/{id}/metadata.
func (s *Server) PurgeDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := s.syncer.Purge(logpkg.WithDocument(r.Context(), id), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchema handles GET /schema.
func (s *Server) GetSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schemaToResponse(s.registry))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidDocumentID, "invalid document id")
		return "", false
	}
	return id, true
}

// splitFields accepts both repeated and comma-separated fields parameters.
func splitFields(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrInvalidDocumentID,
		domain.ErrInvalidVersion,
		domain.ErrMetadataWrite,
		worker.ErrQueueFull,
		domain.ErrBackendUnavailable,
		context.DeadlineExceeded,
		context.Canceled,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	var dbErr *db.Error
	if errors.As(err, &dbErr) {
		return domain.ErrBackendUnavailable.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// queueFullHandler asks clients to retry when the save hook is saturated.
func queueFullHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, worker.ErrQueueFull) {
		return false
	}
	w.Header().Set("Retry-After", "1")
	writeError(w, http.StatusServiceUnavailable, CodeSyncQueueFull, msg)
	return true
}

// backendHandler maps store and document source failures to 503.
func backendHandler(w http.ResponseWriter, err error, msg string) bool {
	var dbErr *db.Error
	if !errors.As(err, &dbErr) && !errors.Is(err, domain.ErrBackendUnavailable) {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, CodeBackendUnavailable, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// NewProjectionResponse converts a projection result to its wire form. Field
// diagnostics are flattened after the request-level ones.
func NewProjectionResponse(res domproj.Result) ProjectionResponse {
	resp := ProjectionResponse{
		DocumentID:  res.DocumentID,
		Version:     res.Version,
		Fields:      make(map[string]FieldResponse, len(res.Fields)),
		Diagnostics: make([]DiagnosticResponse, 0, len(res.Diagnostics)),
	}
	for _, d := range res.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, diagnosticToResponse(d))
	}
	for _, f := range res.Fields {
		resp.Fields[f.Path] = FieldResponse{Value: f.Value, Found: f.Found, Source: string(f.Source)}
		for _, d := range f.Diagnostics {
			resp.Diagnostics = append(resp.Diagnostics, diagnosticToResponse(d))
		}
	}
	return resp
}

func diagnosticToResponse(d domproj.Diagnostic) DiagnosticResponse {
	return DiagnosticResponse{Path: d.Path, Code: string(d.Code), Message: d.Message}
}

func reportToResponse(r dommeta.Report) SyncReport {
	resp := SyncReport{
		DocumentID: r.DocumentID,
		Version:    r.Version,
		Written:    []string{},
		Superseded: []string{},
		Failed:     []EntryFailure{},
	}
	for _, res := range r.Results {
		switch res.Status() {
		case dommeta.StatusWritten:
			resp.Written = append(resp.Written, res.Key())
		case dommeta.StatusSuperseded:
			resp.Superseded = append(resp.Superseded, res.Key())
		case dommeta.StatusFailed:
			resp.Failed = append(resp.Failed, EntryFailure{Key: res.Key(), Error: safeDomainMessage(res.Err())})
		}
	}
	return resp
}

func schemaToResponse(reg *schema.Registry) SchemaResponse {
	resp := SchemaResponse{Blocks: make([]BlockSchema, 0, reg.Len())}
	for _, b := range reg.Blocks() {
		bs := BlockSchema{Name: b.Name(), Attributes: make([]AttributeSchema, 0, len(b.Attributes()))}
		for _, a := range b.Attributes() {
			bs.Attributes = append(bs.Attributes, AttributeSchema{
				Key:       a.Key(),
				Type:      a.Kind().String(),
				Default:   a.Default(),
				Persisted: a.Persisted(),
			})
		}
		resp.Blocks = append(resp.Blocks, bs)
	}
	return resp
}
