// Package api exposes the workflow over REST plus server-sent events
// for streaming generation.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/workflow"
)

// Server routes HTTP traffic to the orchestrator.
type Server struct {
	orch   *workflow.Orchestrator
	logger *logging.Logger
	router chi.Router
}

// NewServer builds the API server and its routes.
func NewServer(orch *workflow.Orchestrator, logger *logging.Logger) *Server {
	s := &Server{orch: orch, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		orch.Metrics().Registry(), promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog/types", s.handleListTypes)
		r.Get("/catalog/states", s.handleListStates)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)
			r.Get("/{projectID}", s.handleViewProject)
			r.Patch("/{projectID}", s.handleRenameProject)
			r.Delete("/{projectID}", s.handleDeleteProject)
			r.Post("/{projectID}/artifacts", s.handleCreateArtifact)
		})

		r.Route("/artifacts/{artifactID}", func(r chi.Router) {
			r.Get("/", s.handleGetArtifact)
			r.Patch("/", s.handleUpdateArtifact)
			r.Get("/interactions", s.handleListInteractions)
			r.Post("/interact", s.handleInteract)
			r.Post("/interact/stream", s.handleInteractStream)
			r.Post("/transition", s.handleTransition)
		})
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorBody is the wire shape for failures.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps structured error codes onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error(logging.CategoryAPI, "request_failed", err.Error(), map[string]any{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		})
	}
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    string(errors.CodeOf(err)),
		Message: err.Error(),
	}})
}
