package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfoundry/specfoundry/pkg/catalog"
	"github.com/specfoundry/specfoundry/pkg/config"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/model"
	"github.com/specfoundry/specfoundry/pkg/parser"
	"github.com/specfoundry/specfoundry/pkg/storage"
	"github.com/specfoundry/specfoundry/pkg/workflow"
)

// scriptedProvider answers every generation with a fixed result.
type scriptedProvider struct {
	result *model.GenerationResult
	err    error
}

func (p *scriptedProvider) ID() string { return "openai" }

func (p *scriptedProvider) Generate(context.Context, model.GenerationRequest) (*model.GenerationResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *scriptedProvider) GenerateStream(_ context.Context, _ model.GenerationRequest, handler model.StreamHandler) (*model.GenerationResult, error) {
	if p.err != nil {
		handler(model.StreamEvent{Type: model.StreamEventError, Err: p.err})
		return nil, p.err
	}
	handler(model.StreamEvent{Type: model.StreamEventDelta, Delta: p.result.Parsed.ArtifactContent})
	handler(model.StreamEvent{Type: model.StreamEventDone, Result: p.result})
	return p.result, nil
}

func newTestServer(t *testing.T) (*Server, *scriptedProvider) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.Load(store)
	require.NoError(t, err)

	provider := &scriptedProvider{result: &model.GenerationResult{
		Model: "openai/gpt-4o",
		Parsed: parser.ParsedResponse{
			ArtifactContent: "# Vision",
			Commentary:      "First draft.",
		},
	}}
	manager := model.NewManager("openai", logging.Discard())
	manager.Register(provider)

	orch := workflow.New(store, cat, manager, config.Default(), logging.Discard())
	return NewServer(orch, logging.Discard()), provider
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func createProject(t *testing.T, s *Server) int64 {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/projects", map[string]string{"name": "Demo"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project storage.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))
	return project.ID
}

func createVision(t *testing.T, s *Server, projectID int64) int64 {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/artifacts", projectID),
		map[string]string{"typeSlug": "vision", "name": "Vision"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var artifact storage.ArtifactDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	return artifact.ID
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/catalog/types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var types []storage.ArtifactType
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Len(t, types, 7)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/catalog/states", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var states []storage.ArtifactState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	assert.Len(t, states, 4)
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)
	projectID := createProject(t, s)

	rec := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", projectID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view workflow.ProjectView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Phases, 2)

	rec = doJSON(t, s, http.MethodPatch, fmt.Sprintf("/api/v1/projects/%d", projectID),
		map[string]string{"name": "Renamed"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d", projectID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", projectID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	s, _ := newTestServer(t)
	projectID := createProject(t, s)
	createVision(t, s, projectID)

	// Duplicate non-repeatable type conflicts.
	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/artifacts", projectID),
		map[string]string{"typeSlug": "vision"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DUPLICATE_ARTIFACT", body.Error.Code)

	// Unmet dependency is unprocessable: C4 Context needs the whole
	// requirements phase, only the vision exists.
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/artifacts", projectID),
		map[string]string{"typeSlug": "c4-context"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown project is not found.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/projects/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateArtifactKickoffOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)
	projectID := createProject(t, s)

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/artifacts", projectID),
		map[string]string{"typeSlug": "vision", "name": "Vision"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var artifact workflow.ArtifactView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	assert.Equal(t, storage.StateInProgress, artifact.StateName)
	assert.Equal(t, 1, artifact.CurrentVersionNumber)
	assert.Equal(t, "# Vision", artifact.CurrentContent)
	assert.Equal(t, []string{storage.StateApproved}, artifact.AvailableTransitions)
}

func TestInteractEndpoint(t *testing.T) {
	s, provider := newTestServer(t)
	projectID := createProject(t, s)
	artifactID := createVision(t, s, projectID)

	provider.result.Parsed.ArtifactContent = "# Vision v2"
	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/artifacts/%d/interact", artifactID),
		interactRequest{Message: "expand it"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result workflow.InteractionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "# Vision v2", result.Content)
	require.NotNil(t, result.Version)
	assert.Equal(t, 2, result.Version.VersionNumber)
	assert.Equal(t, storage.StateInProgress, result.Artifact.StateName)
}

func TestUpdateArtifactEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	projectID := createProject(t, s)
	artifactID := createVision(t, s, projectID)

	rec := doJSON(t, s, http.MethodPatch, fmt.Sprintf("/api/v1/artifacts/%d", artifactID),
		map[string]string{"name": "Product Vision", "content": "# Edited"})
	require.Equal(t, http.StatusOK, rec.Code)

	var artifact workflow.ArtifactView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	assert.Equal(t, "Product Vision", artifact.Name)
	assert.Equal(t, 2, artifact.CurrentVersionNumber)
	assert.Equal(t, "# Edited", artifact.CurrentContent)
}

func TestTransitionEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	projectID := createProject(t, s)
	artifactID := createVision(t, s, projectID)

	// Kickoff left the artifact In Progress; Archived is not reachable.
	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/artifacts/%d/transition", artifactID),
		map[string]string{"state": storage.StateArchived})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/artifacts/%d/transition", artifactID),
		map[string]string{"state": storage.StateApproved})
	require.Equal(t, http.StatusOK, rec.Code)
	var artifact workflow.ArtifactView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	assert.Equal(t, storage.StateApproved, artifact.StateName)
}

func TestInteractStreamEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	projectID := createProject(t, s)
	artifactID := createVision(t, s, projectID)

	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/artifacts/%d/interact/stream", artifactID),
		interactRequest{Message: "write it"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := rec.Body.String()
	assert.Contains(t, events, "event: delta")
	assert.Contains(t, events, "event: done")
	assert.True(t, strings.Index(events, "event: delta") < strings.Index(events, "event: done"))
}

func TestInteractStreamEndpointErrorEvent(t *testing.T) {
	s, provider := newTestServer(t)
	projectID := createProject(t, s)
	artifactID := createVision(t, s, projectID)

	provider.err = fmt.Errorf("upstream exploded")
	rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/artifacts/%d/interact/stream", artifactID),
		interactRequest{Message: "write it"})

	// Stream already started: the failure arrives as an error event.
	require.Equal(t, http.StatusOK, rec.Code)
	events := rec.Body.String()
	assert.Contains(t, events, "event: error")
	assert.NotContains(t, events, "event: done")
}
