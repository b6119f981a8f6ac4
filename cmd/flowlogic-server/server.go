package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flowgraph/flowlogic/internal/app/dto"
	"github.com/flowgraph/flowlogic/internal/app/usecases"
	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
	"github.com/flowgraph/flowlogic/internal/core/wiring"
	"github.com/flowgraph/flowlogic/internal/infrastructure/metrics"
	"github.com/flowgraph/flowlogic/pkg/validation"
)

type server struct {
	gen            *usecases.Generator
	metrics        *metrics.Metrics
	logger         *slog.Logger
	validate       *validation.Middleware
	persistDefault bool
}

func newServer(gen *usecases.Generator, m *metrics.Metrics, logger *slog.Logger, persistDefault bool) *server {
	return &server{
		gen:            gen,
		metrics:        m,
		logger:         logger,
		validate:       validation.NewMiddleware(nil),
		persistDefault: persistDefault,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	snapshotBody := s.validate.ValidateJSON(schema.Snapshot{})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintln(w, "flowlogic server is running. See /healthz, /metrics, /v1/")
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "ok")
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.Handle("POST /v1/wiring", snapshotBody(http.HandlerFunc(s.handleWiring)))
	mux.Handle("POST /v1/bundles/{context}",
		s.validate.ValidateQueryParams(map[string]string{"persist": "bool"})(
			snapshotBody(http.HandlerFunc(s.handleBundle))))
	mux.Handle("GET /v1/artifacts",
		s.validate.ValidateQueryParams(map[string]string{
			"context": "flow_context",
			"limit":   "numeric",
			"offset":  "numeric",
		})(http.HandlerFunc(s.handleListArtifacts)))
	mux.HandleFunc("GET /v1/artifacts/{id}", s.handleGetArtifact)
	mux.HandleFunc("GET /v1/artifacts/{id}/files/{path...}", s.handleGetArtifactFile)

	return s.logRequests(mux)
}

func (s *server) handleWiring(w http.ResponseWriter, r *http.Request) {
	snap, _ := validation.Body[schema.Snapshot](r)
	resp, err := s.gen.Resolve(r.Context(), &dto.WiringRequest{Snapshot: snap})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleBundle(w http.ResponseWriter, r *http.Request) {
	snap, _ := validation.Body[schema.Snapshot](r)
	persist := s.persistDefault && s.gen.Persistent()
	if v := r.URL.Query().Get("persist"); v != "" {
		persist, _ = strconv.ParseBool(v)
	}

	resp, err := s.gen.Generate(r.Context(), &dto.GenerateRequest{
		Snapshot: snap,
		Context:  flow.Context(r.PathValue("context")),
		Persist:  persist,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if resp.ArtifactID != "" && !resp.Reused {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := artifact.Filter{Context: flow.Context(q.Get("context")), Digest: q.Get("digest")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	list, err := s.gen.Artifacts(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": list, "count": len(list)})
}

func (s *server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.gen.Artifact(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) handleGetArtifactFile(w http.ResponseWriter, r *http.Request) {
	a, err := s.gen.Artifact(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	path := r.PathValue("path")
	for _, f := range a.Files {
		if f.Path == path {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Artifact-Digest", a.Digest)
			_, _ = w.Write([]byte(f.Content))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("artifact %s has no file %q", a.ID, path)})
}

type errorBody struct {
	Error   string `json:"error"`
	Rule    string `json:"rule,omitempty"`
	FlowID  string `json:"flow_id,omitempty"`
	Binding string `json:"binding,omitempty"`
}

// writeError maps use case errors to HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var (
		verrs validation.ValidationErrors
		werr  *wiring.Error
	)
	switch {
	case errors.As(err, &verrs):
		validation.WriteErrors(w, http.StatusBadRequest, verrs)
	case errors.As(err, &werr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   werr.Error(),
			Rule:    werr.Rule.Error(),
			FlowID:  werr.FlowID,
			Binding: werr.Binding,
		})
	case errors.Is(err, dto.ErrInvalidContext),
		errors.Is(err, dto.ErrMissingSnapshot),
		errors.Is(err, dto.ErrMissingArtifactID),
		errors.Is(err, artifact.ErrInvalidLimit),
		errors.Is(err, artifact.ErrInvalidOffset),
		errors.Is(err, artifact.ErrInvalidTimeRange):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, artifact.ErrArtifactNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, dto.ErrPersistenceDisabled):
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
