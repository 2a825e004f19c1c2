package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/workflow"
)

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrCodeNotFound, "invalid %s", name)
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid request body")
	}
	return nil
}

func (s *Server) handleListTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Catalog().Types())
}

func (s *Server) handleListStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Catalog().States())
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.orch.Projects()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	project, err := s.orch.CreateProject(body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleViewProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.orch.ViewProject(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRenameProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.orch.RenameProject(id, body.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.orch.DeleteProject(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateArtifact(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		TypeSlug string `json:"typeSlug"`
		Name     string `json:"name"`
		Provider string `json:"provider,omitempty"`
		Model    string `json:"model,omitempty"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	artifact, err := s.orch.CreateArtifact(r.Context(), projectID, body.TypeSlug, body.Name,
		workflow.GenerationOptions{Provider: body.Provider, Model: body.Model})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, artifact)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "artifactID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifact, err := s.orch.Artifact(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// handleUpdateArtifact is the manual edit path: rename and/or replace
// content without touching the generation dialogue.
func (s *Server) handleUpdateArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "artifactID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	artifact, err := s.orch.UpdateArtifact(id, body.Name, body.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "artifactID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	interactions, err := s.orch.Interactions(id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interactions)
}

type interactRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "artifactID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body interactRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.orch.Interact(r.Context(), id, body.Message,
		workflow.GenerationOptions{Provider: body.Provider, Model: body.Model})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "artifactID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		State string `json:"state"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	artifact, err := s.orch.TransitionArtifact(id, body.State)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}
