package storage

import (
	"time"

	"github.com/specfoundry/specfoundry/pkg/parser"
)

// Project owns zero or more artifacts.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LifecyclePhase is an ordered named stage (Requirements, Design).
type LifecyclePhase struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// ArtifactType is static reference data describing one document
// category: its pipeline rank, dependency set, and output tag format.
type ArtifactType struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Slug              string           `json:"slug"`
	Syntax            string           `json:"syntax"`
	LifecyclePhaseID  int64            `json:"lifecyclePhaseId"`
	Rank              int              `json:"rank"`
	Repeatable        bool             `json:"repeatable"`
	Format            parser.TagFormat `json:"tagFormat"`
	DependencyTypeIDs []int64          `json:"dependencyTypeIds"`
}

// ArtifactState is a named node in the transition graph.
type ArtifactState struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StateTransition is one directed edge in the transition graph.
type StateTransition struct {
	FromStateID int64 `json:"fromStateId"`
	ToStateID   int64 `json:"toStateId"`
}

// Artifact is one document instance in a project.
type Artifact struct {
	ID               int64     `json:"id"`
	ProjectID        int64     `json:"projectId"`
	ArtifactTypeID   int64     `json:"artifactTypeId"`
	Name             string    `json:"name"`
	StateID          int64     `json:"stateId"`
	CurrentVersionID *int64    `json:"currentVersionId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ArtifactVersion is immutable once created; edits append new versions.
type ArtifactVersion struct {
	ID            int64     `json:"id"`
	ArtifactID    int64     `json:"artifactId"`
	VersionNumber int       `json:"versionNumber"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Interaction is one turn in an artifact's generation dialogue.
type Interaction struct {
	ID             int64     `json:"id"`
	ArtifactID     int64     `json:"artifactId"`
	VersionID      *int64    `json:"versionId,omitempty"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SequenceNumber int       `json:"sequenceNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ArtifactDetail is an artifact with its type, state, project, and
// current version eagerly joined.
type ArtifactDetail struct {
	Artifact
	ProjectName          string `json:"projectName"`
	TypeName             string `json:"typeName"`
	TypeSlug             string `json:"typeSlug"`
	TypeRank             int    `json:"typeRank"`
	TypeRepeatable       bool   `json:"typeRepeatable"`
	PhaseID              int64  `json:"phaseId"`
	PhaseName            string `json:"phaseName"`
	StateName            string `json:"stateName"`
	CurrentVersionNumber int    `json:"currentVersionNumber,omitempty"`
	CurrentContent       string `json:"currentContent,omitempty"`
}

// Interaction roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
