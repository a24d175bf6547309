// Package api exposes the assembler over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/filetype"
	"github.com/local/pdftoolkit/internal/health"
	"github.com/local/pdftoolkit/internal/limiter"
	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/storage"
	"github.com/local/pdftoolkit/internal/store"
)

// Processor runs one operation.
type Processor interface {
	Process(ctx context.Context, req assembler.Request) (*assembler.Result, error)
}

type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
	Get(ctx context.Context, jobID string) (store.Status, bool, error)
}

// Dependencies wires the server. Status, Results, Slots and Health are
// optional.
type Dependencies struct {
	Processor Processor
	Status    StatusStore
	Results   storage.Results
	Slots     *limiter.Slots
	Health    *health.Checker
	Detector  *filetype.Detector

	MaxUploadBytes int64
	Timeout        time.Duration
}

type Server struct {
	deps Dependencies
}

func New(deps Dependencies) *Server {
	if deps.Detector == nil {
		deps.Detector = filetype.New()
	}
	return &Server{deps: deps}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("GET /api/status/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
}

// Handler returns the routed, traced handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return otelhttp.NewHandler(mux, "pdftoolkit")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, health.Summary{Ready: true})
		return
	}
	sum := s.deps.Health.Summary(r.Context())
	code := http.StatusOK
	if !sum.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, sum)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.deps.Status == nil {
		writeProblem(w, http.StatusNotFound, "not_found", "status tracking is disabled")
		return
	}
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("status lookup failed")
		writeProblem(w, http.StatusInternalServerError, "internal", "status lookup failed")
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "not_found", "unknown result id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": st.State != store.StateFailed, "id": id, "job": st})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.deps.Results == nil {
		writeProblem(w, http.StatusNotFound, "not_found", "result storage is disabled")
		return
	}
	data, err := s.deps.Results.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "not_found", "result not available")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("result download failed")
		writeProblem(w, http.StatusInternalServerError, "internal", "failed to read result")
		return
	}
	info := s.deps.Detector.DetectBytes(data, id)
	w.Header().Set("Content-Type", info.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+info.Extension+`"`)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg, "code": errCode})
}
