package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type unit struct {
	Name   string `json:"name"`
	Kind   string `json:"kind,omitempty"`
	Status string `json:"status,omitempty"`
}

type pipelineRequest struct {
	TenantID   string `json:"tenant_id"`
	PipelineID string `json:"pipeline_id"`
}

type fixture struct {
	units  []unit
	report map[string]any
}

// fixtures cover the three interesting gate outcomes: a clean run, a run with
// alerts, and a clean run whose serial chain stalls on a unit still training.
var fixtures = map[string]fixture{
	"forecast": {
		units: []unit{
			{Name: "ingest"},
			{Name: "arima"},
			{Name: "prophet", Kind: "parallel"},
			{Name: "publish"},
		},
		report: map[string]any{"alerts": []any{}, "checked_at": "2024-05-01T00:00:00Z"},
	},
	"anomaly": {
		units: []unit{
			{Name: "ingest"},
			{Name: "isolation-forest"},
		},
		report: map[string]any{"alerts": []any{map[string]any{"name": "p95 latency", "service": "checkout"}}},
	},
	"retrain": {
		units: []unit{
			{Name: "ingest"},
			{Name: "train", Status: "training"},
			{Name: "shadow-eval", Kind: "parallel", Status: "ready"},
			{Name: "promote"},
		},
		report: map[string]any{},
	},
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("service", "registry-mock"))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests(logger))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/api/v1/pipelines/units", func(w http.ResponseWriter, r *http.Request) {
		fx, ok := lookup(w, r)
		if !ok {
			return
		}
		writeJSON(w, map[string]any{"units": fx.units})
	})
	r.Post("/api/v1/pipelines/report", func(w http.ResponseWriter, r *http.Request) {
		fx, ok := lookup(w, r)
		if !ok {
			return
		}
		writeJSON(w, map[string]any{"report": fx.report})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func lookup(w http.ResponseWriter, r *http.Request) (fixture, bool) {
	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return fixture{}, false
	}
	fx, ok := fixtures[req.PipelineID]
	if !ok {
		http.Error(w, "unknown pipeline "+req.PipelineID, http.StatusNotFound)
		return fixture{}, false
	}
	return fx, true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
