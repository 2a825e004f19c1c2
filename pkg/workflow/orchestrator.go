// Package workflow coordinates the artifact lifecycle: creation against
// the type catalog, generation interactions through the provider layer,
// versioning, and the data-driven state machine.
package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/specfoundry/specfoundry/pkg/assembler"
	"github.com/specfoundry/specfoundry/pkg/catalog"
	"github.com/specfoundry/specfoundry/pkg/config"
	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/logging"
	"github.com/specfoundry/specfoundry/pkg/model"
	"github.com/specfoundry/specfoundry/pkg/prompts"
	"github.com/specfoundry/specfoundry/pkg/storage"
)

// Orchestrator drives the artifact workflow end to end.
type Orchestrator struct {
	store     *storage.Store
	catalog   *catalog.Catalog
	assembler *assembler.Assembler
	prompts   *prompts.Generator
	models    *model.Manager
	cfg       *config.Config
	logger    *logging.Logger
	metrics   *Metrics

	// locks serializes interactions per artifact so sequence numbers
	// and version numbers are assigned race-free.
	locks sync.Map // artifactID -> *sync.Mutex
}

// New wires an orchestrator from its collaborators.
func New(store *storage.Store, cat *catalog.Catalog, models *model.Manager, cfg *config.Config, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		catalog:   cat,
		assembler: assembler.New(store, cat, logger),
		prompts:   prompts.NewGenerator(),
		models:    models,
		cfg:       cfg,
		logger:    logger,
		metrics:   NewMetrics(),
	}
}

// Metrics returns the orchestrator's metric set.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// Catalog exposes the reference data the workflow runs on.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	return o.catalog
}

func (o *Orchestrator) lockArtifact(artifactID int64) func() {
	v, _ := o.locks.LoadOrStore(artifactID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateProject creates a named project.
func (o *Orchestrator) CreateProject(name string) (*storage.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "project name cannot be empty")
	}
	p, err := o.store.CreateProject(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "creating project")
	}
	o.logger.Info(logging.CategoryWorkflow, "project_created", name, map[string]any{"project_id": p.ID})
	return p, nil
}

// Projects lists all projects.
func (o *Orchestrator) Projects() ([]storage.Project, error) {
	projects, err := o.store.ListProjects()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "listing projects")
	}
	return projects, nil
}

// RenameProject renames a project.
func (o *Orchestrator) RenameProject(projectID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "project name cannot be empty")
	}
	if _, err := o.requireProject(projectID); err != nil {
		return err
	}
	if err := o.store.RenameProject(projectID, name); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "renaming project")
	}
	return nil
}

// DeleteProject removes a project and everything under it.
func (o *Orchestrator) DeleteProject(projectID int64) error {
	if _, err := o.requireProject(projectID); err != nil {
		return err
	}
	if err := o.store.DeleteProject(projectID); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "deleting project")
	}
	o.logger.Info(logging.CategoryWorkflow, "project_deleted", "", map[string]any{"project_id": projectID})
	return nil
}

func (o *Orchestrator) requireProject(projectID int64) (*storage.Project, error) {
	p, err := o.store.FindProjectByID(projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading project")
	}
	if p == nil {
		return nil, errors.Newf(errors.ErrCodeNotFound, "project %d not found", projectID)
	}
	return p, nil
}

func (o *Orchestrator) requireArtifact(artifactID int64) (*storage.ArtifactDetail, error) {
	a, err := o.store.FindArtifactByID(artifactID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading artifact")
	}
	if a == nil {
		return nil, errors.Newf(errors.ErrCodeNotFound, "artifact %d not found", artifactID)
	}
	return a, nil
}

func (o *Orchestrator) artifactView(artifactID int64) (*ArtifactView, error) {
	detail, err := o.requireArtifact(artifactID)
	if err != nil {
		return nil, err
	}
	transitions, err := o.transitionNames(detail.StateID)
	if err != nil {
		return nil, err
	}
	return &ArtifactView{ArtifactDetail: detail, AvailableTransitions: transitions}, nil
}

func (o *Orchestrator) transitionNames(stateID int64) ([]string, error) {
	states, err := o.store.GetAvailableTransitions(stateID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading transitions")
	}
	names := make([]string, 0, len(states))
	for _, st := range states {
		names = append(names, st.Name)
	}
	return names, nil
}

// ViewProject renders the pipeline board: every phase with its
// artifacts, plus a "New <Type>" placeholder for each type the user can
// still create (absent non-repeatable types, and always for repeatable
// families).
func (o *Orchestrator) ViewProject(projectID int64) (*ProjectView, error) {
	project, err := o.requireProject(projectID)
	if err != nil {
		return nil, err
	}

	view := &ProjectView{Project: *project}
	for _, phase := range o.catalog.Phases() {
		artifacts, err := o.store.GetArtifactsByProjectAndPhase(projectID, phase.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading phase artifacts")
		}

		byType := make(map[int64]int)
		phaseView := PhaseView{Phase: phase}
		for _, a := range artifacts {
			byType[a.ArtifactTypeID]++
			transitions, err := o.transitionNames(a.StateID)
			if err != nil {
				return nil, err
			}
			phaseView.Items = append(phaseView.Items, BoardItem{
				ArtifactID:    a.ID,
				Name:          a.Name,
				TypeName:      a.TypeName,
				TypeSlug:      a.TypeSlug,
				StateName:     a.StateName,
				VersionNumber: a.CurrentVersionNumber,
				Content:       a.CurrentContent,
				Transitions:   transitions,
			})
		}

		for _, t := range o.catalog.TypesByPhase(phase.ID) {
			if !t.Repeatable && byType[t.ID] > 0 {
				continue
			}
			phaseView.Items = append(phaseView.Items, BoardItem{
				Name:        "New " + t.Name,
				TypeName:    t.Name,
				TypeSlug:    t.Slug,
				Placeholder: true,
			})
		}

		view.Phases = append(view.Phases, phaseView)
	}
	return view, nil
}

// CreateArtifact creates an artifact of the slugged type and runs the
// kickoff generation: the assembled context goes to the provider with
// no prior history, produced content becomes version 1, and produced
// commentary becomes the assistant interaction at sequence 1. A
// non-repeatable type may exist only once per project. Any failure
// after the insert removes the row again, so failed creations leave no
// trace.
func (o *Orchestrator) CreateArtifact(ctx context.Context, projectID int64, typeSlug, name string, opts GenerationOptions) (*ArtifactView, error) {
	if _, err := o.requireProject(projectID); err != nil {
		return nil, err
	}
	artifactType, err := o.catalog.TypeBySlug(typeSlug)
	if err != nil {
		return nil, err
	}

	if !artifactType.Repeatable {
		count, err := o.store.CountArtifactsByType(projectID, artifactType.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "counting artifacts")
		}
		if count > 0 {
			return nil, errors.Newf(errors.ErrCodeDuplicateArtifact,
				"project already has a %s", artifactType.Name)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = artifactType.Name
	}

	todo, err := o.catalog.StateByName(storage.StateToDo)
	if err != nil {
		return nil, err
	}

	created, err := o.store.CreateArtifact(projectID, artifactType.ID, name, todo.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "creating artifact")
	}

	unwind := func(err error) (*ArtifactView, error) {
		if delErr := o.store.DeleteArtifact(created.ID); delErr != nil {
			o.logger.Error(logging.CategoryWorkflow, "artifact_unwind_failed", delErr.Error(), map[string]any{
				"artifact_id": created.ID,
			})
		}
		return nil, err
	}

	detail, err := o.requireArtifact(created.ID)
	if err != nil {
		return unwind(err)
	}

	bundle, err := o.assembler.Assemble(detail, "", false)
	if err != nil {
		return unwind(err)
	}

	// Generation starts immediately, so To Do is skipped in practice.
	inProgress, err := o.catalog.StateByName(storage.StateInProgress)
	if err != nil {
		return unwind(err)
	}
	if err := o.store.UpdateArtifactState(created.ID, inProgress.ID); err != nil {
		return unwind(errors.Wrap(err, errors.ErrCodeStorageWrite, "starting artifact"))
	}

	requestID := uuid.NewString()
	result, err := o.generate(ctx, requestID, created.ID, artifactType, bundle, nil, opts, nil)
	if err != nil {
		return unwind(err)
	}

	var versionID *int64
	if strings.TrimSpace(result.Parsed.ArtifactContent) != "" {
		v, err := o.store.CreateArtifactVersion(created.ID, result.Parsed.ArtifactContent)
		if err != nil {
			return unwind(errors.Wrap(err, errors.ErrCodeStorageWrite, "storing kickoff version"))
		}
		versionID = &v.ID
	}
	if result.Parsed.Commentary != "" {
		if _, err := o.store.CreateInteraction(created.ID, versionID, storage.RoleAssistant, result.Parsed.Commentary, 1); err != nil {
			return unwind(errors.Wrap(err, errors.ErrCodeStorageWrite, "recording kickoff commentary"))
		}
	}

	o.metrics.ArtifactsCreated.Inc()
	o.logger.Log(logging.Event{
		Level:      logging.LevelInfo,
		Category:   logging.CategoryWorkflow,
		EventType:  "artifact_created",
		RequestID:  requestID,
		ProjectID:  projectID,
		ArtifactID: created.ID,
		Message:    name,
		Details:    map[string]any{"type": artifactType.Slug, "model": result.Model},
	})
	return o.artifactView(created.ID)
}

// UpdateArtifact is the manual edit path, bypassing the generation
// loop: the name is updated when given, and changed content becomes a
// new version. Interaction history and state are untouched.
func (o *Orchestrator) UpdateArtifact(artifactID int64, name, content string) (*ArtifactView, error) {
	release := o.lockArtifact(artifactID)
	defer release()

	artifact, err := o.requireArtifact(artifactID)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" && name != artifact.Name {
		if err := o.store.UpdateArtifactName(artifactID, name); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "renaming artifact")
		}
	}

	if strings.TrimSpace(content) != "" && content != artifact.CurrentContent {
		if _, err := o.store.CreateArtifactVersion(artifactID, content); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "storing edited version")
		}
		o.logger.Info(logging.CategoryWorkflow, "artifact_edited", "", map[string]any{
			"artifact_id": artifactID,
		})
	}

	return o.artifactView(artifactID)
}

// Artifact returns the detailed view of one artifact.
func (o *Orchestrator) Artifact(artifactID int64) (*ArtifactView, error) {
	return o.artifactView(artifactID)
}

// Interactions returns the recent dialogue for an artifact,
// newest-first.
func (o *Orchestrator) Interactions(artifactID int64, limit int) ([]storage.Interaction, error) {
	if _, err := o.requireArtifact(artifactID); err != nil {
		return nil, err
	}
	interactions, _, err := o.store.GetLastInteractions(artifactID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "loading interactions")
	}
	return interactions, nil
}

// TransitionArtifact moves an artifact along a seeded transition edge.
// Requests without a matching edge fail with INVALID_TRANSITION, which
// covers terminal states since they have no outgoing edges.
func (o *Orchestrator) TransitionArtifact(artifactID int64, toStateName string) (*ArtifactView, error) {
	release := o.lockArtifact(artifactID)
	defer release()

	artifact, err := o.requireArtifact(artifactID)
	if err != nil {
		return nil, err
	}
	target, err := o.catalog.StateByName(toStateName)
	if err != nil {
		return nil, err
	}

	ok, err := o.store.HasTransition(artifact.StateID, target.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "checking transition")
	}
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidTransition,
			"no transition from %s to %s", artifact.StateName, target.Name)
	}

	if err := o.store.UpdateArtifactState(artifactID, target.ID); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "updating state")
	}

	o.metrics.Transitions.Inc()
	o.logger.Info(logging.CategoryWorkflow, "artifact_transitioned", "", map[string]any{
		"artifact_id": artifactID,
		"from":        artifact.StateName,
		"to":          target.Name,
	})
	return o.artifactView(artifactID)
}

// Interact runs a synchronous generation turn against an artifact.
func (o *Orchestrator) Interact(ctx context.Context, artifactID int64, message string, opts GenerationOptions) (*InteractionResult, error) {
	release := o.lockArtifact(artifactID)
	defer release()
	return o.interact(ctx, artifactID, message, opts, nil)
}

// InteractStream runs a generation turn delivering incremental output
// through the handler. Failures surface both as the returned error and
// as a terminal error event on the handler. The provider's own done
// event is withheld: persistence happens after the stream ends, and the
// returned InteractionResult is the authoritative terminal payload.
func (o *Orchestrator) InteractStream(ctx context.Context, artifactID int64, message string, opts GenerationOptions, handler model.StreamHandler) (*InteractionResult, error) {
	release := o.lockArtifact(artifactID)
	defer release()

	filtered := func(ev model.StreamEvent) {
		if ev.Type != model.StreamEventDone {
			handler(ev)
		}
	}
	return o.interact(ctx, artifactID, message, opts, filtered)
}

func (o *Orchestrator) interact(ctx context.Context, artifactID int64, message string, opts GenerationOptions, handler model.StreamHandler) (*InteractionResult, error) {
	requestID := uuid.NewString()

	fail := func(err error) (*InteractionResult, error) {
		o.logger.Log(logging.Event{
			Level:      logging.LevelError,
			Category:   logging.CategoryWorkflow,
			EventType:  "interaction_failed",
			RequestID:  requestID,
			ArtifactID: artifactID,
			Message:    err.Error(),
		})
		if handler != nil {
			handler(model.StreamEvent{Type: model.StreamEventError, Err: err})
		}
		return nil, err
	}

	artifact, err := o.requireArtifact(artifactID)
	if err != nil {
		return fail(err)
	}

	o.logger.Log(logging.Event{
		Level:      logging.LevelInfo,
		Category:   logging.CategoryWorkflow,
		EventType:  "interaction_start",
		RequestID:  requestID,
		ArtifactID: artifactID,
		Details:    map[string]any{"streaming": handler != nil},
	})

	// Interacting means working on the document: the artifact is forced
	// into In Progress regardless of the transition graph.
	inProgress, err := o.catalog.StateByName(storage.StateInProgress)
	if err != nil {
		return fail(err)
	}
	if artifact.StateID != inProgress.ID {
		if err := o.store.UpdateArtifactState(artifactID, inProgress.ID); err != nil {
			return fail(errors.Wrap(err, errors.ErrCodeStorageWrite, "forcing in-progress state"))
		}
		artifact.StateID = inProgress.ID
		artifact.StateName = inProgress.Name
	}

	isUpdate := artifact.CurrentVersionID != nil
	bundle, err := o.assembler.Assemble(artifact, message, isUpdate)
	if err != nil {
		return fail(err)
	}

	history, nextSeq, err := o.history(artifactID)
	if err != nil {
		return fail(err)
	}

	if _, err := o.store.CreateInteraction(artifactID, nil, storage.RoleUser, message, nextSeq); err != nil {
		return fail(errors.Wrap(err, errors.ErrCodeStorageWrite, "recording user interaction"))
	}

	artifactType, err := o.catalog.TypeByID(artifact.ArtifactTypeID)
	if err != nil {
		return fail(err)
	}

	result, err := o.generate(ctx, requestID, artifactID, artifactType, bundle, history, opts, handler)
	if err != nil {
		// On streams the provider already delivered the terminal event.
		return nil, err
	}

	turn, err := o.persistTurn(artifactID, nextSeq+1, requestID, result)
	if err != nil {
		return fail(err)
	}
	return turn, nil
}

// generate resolves the provider and model, runs one generation call,
// and records metrics and failure logs for it.
func (o *Orchestrator) generate(ctx context.Context, requestID string, artifactID int64, artifactType storage.ArtifactType, bundle *assembler.ContextBundle, history []model.Message, opts GenerationOptions, handler model.StreamHandler) (*model.GenerationResult, error) {
	provider := opts.Provider
	if provider == "" {
		provider = o.cfg.Providers.Default
	}
	modelID := opts.Model
	if modelID == "" {
		modelID = o.cfg.DefaultModelFor(provider)
	}

	genReq := model.GenerationRequest{
		SystemPrompt: o.prompts.SystemPrompt(artifactType),
		UserPrompt:   o.prompts.UserPrompt(bundle),
		Format:       artifactType.Format,
		IsUpdate:     bundle.IsUpdate,
		History:      history,
		Model:        modelID,
		Temperature:  o.cfg.Generation.Temperature,
		MaxTokens:    o.cfg.Generation.MaxTokens,
	}

	start := time.Now()
	var result *model.GenerationResult
	var err error
	if handler != nil {
		result, err = o.models.GenerateStream(ctx, provider, genReq, handler)
	} else {
		result, err = o.models.Generate(ctx, provider, genReq)
	}
	o.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.Generations.WithLabelValues(provider, "error").Inc()
		o.logger.Log(logging.Event{
			Level:      logging.LevelError,
			Category:   logging.CategoryWorkflow,
			EventType:  "generation_failed",
			RequestID:  requestID,
			ArtifactID: artifactID,
			Message:    err.Error(),
		})
		return nil, err
	}
	o.metrics.Generations.WithLabelValues(provider, "success").Inc()
	return result, nil
}

// persistTurn stores the generation outcome: a new version when content
// arrived, and the assistant's commentary as the reply turn.
func (o *Orchestrator) persistTurn(artifactID int64, seq int, requestID string, result *model.GenerationResult) (*InteractionResult, error) {
	var version *storage.ArtifactVersion
	var versionID *int64
	if strings.TrimSpace(result.Parsed.ArtifactContent) != "" {
		v, err := o.store.CreateArtifactVersion(artifactID, result.Parsed.ArtifactContent)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "storing artifact version")
		}
		version = v
		versionID = &v.ID
	}

	reply := result.Parsed.Commentary
	if reply == "" {
		reply = "Updated the document."
	}
	if _, err := o.store.CreateInteraction(artifactID, versionID, storage.RoleAssistant, reply, seq); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageWrite, "recording assistant interaction")
	}

	view, err := o.artifactView(artifactID)
	if err != nil {
		return nil, err
	}

	o.logger.Log(logging.Event{
		Level:      logging.LevelInfo,
		Category:   logging.CategoryWorkflow,
		EventType:  "interaction_complete",
		RequestID:  requestID,
		ArtifactID: artifactID,
		Details:    map[string]any{"model": result.Model, "has_version": version != nil},
	})

	return &InteractionResult{
		Artifact:   view,
		Version:    version,
		Content:    result.Parsed.ArtifactContent,
		Commentary: result.Parsed.Commentary,
		Model:      result.Model,
	}, nil
}

// history loads the recent dialogue as chronological model messages and
// returns the next free sequence number.
func (o *Orchestrator) history(artifactID int64) ([]model.Message, int, error) {
	limit := o.cfg.Generation.HistoryPairs * 2
	interactions, nextSeq, err := o.store.GetLastInteractions(artifactID, limit)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeStorageRead, "loading interaction history")
	}

	messages := make([]model.Message, 0, len(interactions))
	for i := len(interactions) - 1; i >= 0; i-- {
		messages = append(messages, model.Message{
			Role:    interactions[i].Role,
			Content: interactions[i].Content,
		})
	}
	return messages, nextSeq, nil
}
