// Package httpapi is the thin HTTP layer over the batch worker. Handlers
// validate and translate payloads; all processing stays behind the service
// interfaces.
package httpapi

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veridoc/internal/domain"
	"veridoc/internal/store"
	"veridoc/internal/worker"
	"veridoc/pkg/platform/httputil"
)

// BatchService processes one intake request.
type BatchService interface {
	ProcessBatch(ctx context.Context, req worker.Request) []domain.ProcessedResult
}

// ResultFinder looks up previously stored results.
type ResultFinder interface {
	FindByExternalID(ctx context.Context, externalID string) (domain.ProcessedResult, error)
}

// HealthCheck probes one collaborator.
type HealthCheck func(ctx context.Context) error

// Handler wires the intake endpoints to the worker service.
type Handler struct {
	service      BatchService
	results      ResultFinder
	logger       *slog.Logger
	maxDocuments int
	health       map[string]HealthCheck
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithMaxDocuments bounds the batch size of one request.
func WithMaxDocuments(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxDocuments = n
		}
	}
}

// WithHealthCheck registers a named collaborator probe for /healthz.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *Handler) { h.health[name] = check }
}

// New constructs a Handler.
func New(service BatchService, results ResultFinder, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:      service,
		results:      results,
		logger:       logger,
		maxDocuments: 30,
		health:       make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents/process", h.HandleProcess)
	r.Get("/documents/{externalID}", h.HandleGetResult)
}

// HandleProcess handles POST /documents/process.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.DecodeJSON[ProcessRequest](w, r)
	if !ok {
		return
	}
	if problem := req.Validate(h.maxDocuments); problem != "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", problem)
		return
	}

	results := h.service.ProcessBatch(ctx, req.ToWorkerRequest())

	h.logger.InfoContext(ctx, "batch processed",
		"owner", req.OwnerUserName,
		"documents", len(req.Documents),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ProcessResponse{
		OwnerUserName: req.OwnerUserName,
		Results:       results,
	})
}

// HandleGetResult handles GET /documents/{externalID}.
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	result, err := h.results.FindByExternalID(r.Context(), externalID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no result for that document")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "result lookup failed", "external_id", externalID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleHealth handles GET /healthz: every registered collaborator is probed
// and reported individually; any failure degrades the overall status.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Components: make(map[string]string, len(h.health))}
	status := http.StatusOK
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
