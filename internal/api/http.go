package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/miradorstack/mirador-gate/internal/models"
	"github.com/miradorstack/mirador-gate/internal/utils"
)

const maxBodyBytes = 1 << 20

// Backend is the domain surface the HTTP handlers call into.
type Backend interface {
	Decide(ctx context.Context, req models.DecisionRequest) (models.Decision, error)
	LastDecision(ctx context.Context, ref PipelineRef) (models.Decision, error)
	ListDecisions(ctx context.Context, req models.ListDecisionsRequest) (models.ListDecisionsResponse, error)
	Hotspots(ctx context.Context, query HotspotsQuery) ([]models.BlockingPattern, error)
	Actions() []models.ActionDescriptor
	Health(ctx context.Context) Health
}

// Handler wires gate endpoints to the backend.
type Handler struct {
	backend Backend
	logger  *slog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(backend Backend, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{backend: backend, logger: logger}
}

// Register mounts gate endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/decisions", h.handleDecide)
		r.Get("/decisions", h.handleListDecisions)
		r.Get("/decisions/last", h.handleLastDecision)
		r.Get("/actions", h.handleActions)
		r.Get("/hotspots", h.handleHotspots)
	})
}

// NewRouter returns a chi router with the standard middleware stack and
// the gate endpoints mounted.
func NewRouter(backend Backend, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	NewHandler(backend, logger).Register(r)
	return r
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var fields map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&fields); err != nil {
		writeError(w, utils.InvalidArgument("http.decide", "malformed JSON body: %v", err))
		return
	}

	req, err := DecisionRequestFromMap(fields)
	if err != nil {
		writeError(w, err)
		return
	}

	decision, err := h.backend.Decide(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "decision failed",
			"request_id", middleware.GetReqID(ctx),
			"pipeline_id", req.PipelineID,
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewDecisionResponse(decision))
}

func (h *Handler) handleLastDecision(w http.ResponseWriter, r *http.Request) {
	ref, err := PipelineRefFromMap(queryFields(r))
	if err != nil {
		writeError(w, err)
		return
	}
	decision, err := h.backend.LastDecision(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewDecisionResponse(decision))
}

func (h *Handler) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	req, err := ListDecisionsRequestFromMap(queryFields(r))
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.backend.ListDecisions(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewListDecisionsResponse(resp))
}

func (h *Handler) handleHotspots(w http.ResponseWriter, r *http.Request) {
	query, err := HotspotsQueryFromMap(queryFields(r))
	if err != nil {
		writeError(w, err)
		return
	}
	patterns, err := h.backend.Hotspots(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	if patterns == nil {
		patterns = []models.BlockingPattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hotspots": patterns})
}

func (h *Handler) handleActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actions": h.backend.Actions()})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Health(r.Context()))
}

func queryFields(r *http.Request) map[string]any {
	values := r.URL.Query()
	fields := make(map[string]any, len(values))
	for key := range values {
		fields[key] = values.Get(key)
	}
	return fields
}

// ErrUnavailable marks a backend dependency that is not configured.
var ErrUnavailable = errors.New("unavailable")

func writeError(w http.ResponseWriter, err error) {
	code, status := "internal_error", http.StatusInternalServerError
	switch {
	case utils.IsInvalidArgument(err):
		code, status = "bad_request", http.StatusBadRequest
	case errors.Is(err, models.ErrDecisionNotFound):
		code, status = "not_found", http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		code, status = "unavailable", http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code, status = "timeout", http.StatusGatewayTimeout
	}

	body := map[string]string{"error": code}
	if status != http.StatusInternalServerError {
		body["error_description"] = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
