package storage

import (
	"database/sql"
	"fmt"
)

// Well-known reference data names. States and types are data-driven at
// runtime; these constants only anchor the seed and the orchestrator's
// default lookups.
const (
	PhaseRequirements = "Requirements"
	PhaseDesign       = "Design"

	StateToDo       = "To Do"
	StateInProgress = "In Progress"
	StateApproved   = "Approved"
	StateArchived   = "Archived"

	TypeVision                    = "Vision Document"
	TypeFunctionalRequirements    = "Functional Requirements"
	TypeNonFunctionalRequirements = "Non-Functional Requirements"
	TypeUseCases                  = "Use Cases"
	TypeC4Context                 = "C4 Context"
	TypeC4Container               = "C4 Container"
	TypeC4Component               = "C4 Component"
)

type seedType struct {
	name       string
	slug       string
	syntax     string
	phase      string
	rank       int
	repeatable bool
	startTag   string
	endTag     string
}

var seedTypes = []seedType{
	{TypeVision, "vision", "markdown", PhaseRequirements, 1, false, "[VISION]", "[/VISION]"},
	{TypeFunctionalRequirements, "functional-requirements", "markdown", PhaseRequirements, 2, false, "[FUNCTIONAL_REQUIREMENTS]", "[/FUNCTIONAL_REQUIREMENTS]"},
	{TypeNonFunctionalRequirements, "non-functional-requirements", "markdown", PhaseRequirements, 3, false, "[NON_FUNCTIONAL_REQUIREMENTS]", "[/NON_FUNCTIONAL_REQUIREMENTS]"},
	{TypeUseCases, "use-cases", "markdown", PhaseRequirements, 4, true, "[USE_CASES]", "[/USE_CASES]"},
	{TypeC4Context, "c4-context", "mermaid", PhaseDesign, 5, false, "[C4_CONTEXT]", "[/C4_CONTEXT]"},
	{TypeC4Container, "c4-container", "mermaid", PhaseDesign, 6, false, "[C4_CONTAINER]", "[/C4_CONTAINER]"},
	{TypeC4Component, "c4-component", "mermaid", PhaseDesign, 7, true, "[C4_COMPONENT]", "[/C4_COMPONENT]"},
}

const (
	commentaryStartTag = "[COMMENTARY]"
	commentaryEndTag   = "[/COMMENTARY]"
)

// seedReferenceData populates phases, artifact types, states, and the
// transition graph. Idempotent via INSERT OR IGNORE on unique names.
func seedReferenceData(db *sql.DB) error {
	for i, phase := range []string{PhaseRequirements, PhaseDesign} {
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO lifecycle_phases (name, position) VALUES (?, ?)`,
			phase, i+1,
		); err != nil {
			return fmt.Errorf("seed phase %s: %w", phase, err)
		}
	}

	for _, t := range seedTypes {
		if _, err := db.Exec(`
			INSERT OR IGNORE INTO artifact_types
				(name, slug, syntax, lifecycle_phase_id, rank, repeatable,
				 start_tag, end_tag, commentary_start_tag, commentary_end_tag)
			VALUES (?, ?, ?, (SELECT id FROM lifecycle_phases WHERE name = ?), ?, ?, ?, ?, ?, ?)`,
			t.name, t.slug, t.syntax, t.phase, t.rank, t.repeatable,
			t.startTag, t.endTag, commentaryStartTag, commentaryEndTag,
		); err != nil {
			return fmt.Errorf("seed artifact type %s: %w", t.name, err)
		}
	}

	// Every type depends on all lower-ranked checkpoint types.
	if _, err := db.Exec(`
		INSERT OR IGNORE INTO artifact_type_dependencies (artifact_type_id, depends_on_type_id)
		SELECT a.id, b.id FROM artifact_types a
		JOIN artifact_types b ON b.rank < a.rank`,
	); err != nil {
		return fmt.Errorf("seed type dependencies: %w", err)
	}

	for _, state := range []string{StateToDo, StateInProgress, StateApproved, StateArchived} {
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO artifact_states (name) VALUES (?)`, state,
		); err != nil {
			return fmt.Errorf("seed state %s: %w", state, err)
		}
	}

	// Archived has no outgoing edges and is therefore terminal.
	edges := [][2]string{
		{StateToDo, StateInProgress},
		{StateInProgress, StateApproved},
		{StateApproved, StateInProgress},
		{StateApproved, StateArchived},
	}
	for _, edge := range edges {
		if _, err := db.Exec(`
			INSERT OR IGNORE INTO state_transitions (from_state_id, to_state_id)
			VALUES (
				(SELECT id FROM artifact_states WHERE name = ?),
				(SELECT id FROM artifact_states WHERE name = ?)
			)`, edge[0], edge[1],
		); err != nil {
			return fmt.Errorf("seed transition %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	return nil
}
