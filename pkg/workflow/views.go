package workflow

import (
	"github.com/specfoundry/specfoundry/pkg/storage"
)

// GenerationOptions selects the provider and model for one generation
// call. Zero values fall back to the configured defaults.
type GenerationOptions struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// ArtifactView is an artifact detail plus the transitions reachable
// from its current state. An empty transition list means the state is
// terminal.
type ArtifactView struct {
	*storage.ArtifactDetail
	AvailableTransitions []string `json:"availableTransitions"`
}

// ProjectView is the pipeline board for one project: each lifecycle
// phase with its artifacts plus creation placeholders for the types a
// user can still add.
type ProjectView struct {
	Project storage.Project `json:"project"`
	Phases  []PhaseView     `json:"phases"`
}

// PhaseView groups board items under a lifecycle phase.
type PhaseView struct {
	Phase storage.LifecyclePhase `json:"phase"`
	Items []BoardItem            `json:"items"`
}

// BoardItem is one entry on the board: either a real artifact or a
// "New <Type>" placeholder inviting creation.
type BoardItem struct {
	ArtifactID    int64    `json:"artifactId,omitempty"`
	Name          string   `json:"name"`
	TypeName      string   `json:"typeName"`
	TypeSlug      string   `json:"typeSlug"`
	StateName     string   `json:"stateName,omitempty"`
	VersionNumber int      `json:"versionNumber,omitempty"`
	Content       string   `json:"content,omitempty"`
	Transitions   []string `json:"availableTransitions,omitempty"`
	Placeholder   bool     `json:"placeholder,omitempty"`
}

// InteractionResult is the outcome of a generation interaction.
type InteractionResult struct {
	Artifact   *ArtifactView            `json:"artifact"`
	Version    *storage.ArtifactVersion `json:"version,omitempty"`
	Content    string                   `json:"content"`
	Commentary string                   `json:"commentary"`
	Model      string                   `json:"model,omitempty"`
}
