package storage

import (
	"database/sql"
)

// ListPhases returns lifecycle phases in pipeline order.
func (s *Store) ListPhases() ([]LifecyclePhase, error) {
	rows, err := s.db.Query(`SELECT id, name, position FROM lifecycle_phases ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []LifecyclePhase
	for rows.Next() {
		var p LifecyclePhase
		if err := rows.Scan(&p.ID, &p.Name, &p.Position); err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

// ListArtifactTypes returns artifact types in rank order with their
// dependency sets populated.
func (s *Store) ListArtifactTypes() ([]ArtifactType, error) {
	rows, err := s.db.Query(`
		SELECT id, name, slug, syntax, lifecycle_phase_id, rank, repeatable,
		       start_tag, end_tag,
		       COALESCE(commentary_start_tag, ''), COALESCE(commentary_end_tag, '')
		FROM artifact_types
		ORDER BY rank`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []ArtifactType
	for rows.Next() {
		var t ArtifactType
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Slug, &t.Syntax, &t.LifecyclePhaseID, &t.Rank, &t.Repeatable,
			&t.Format.StartTag, &t.Format.EndTag,
			&t.Format.CommentaryStartTag, &t.Format.CommentaryEndTag,
		); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range types {
		deps, err := s.listTypeDependencies(types[i].ID)
		if err != nil {
			return nil, err
		}
		types[i].DependencyTypeIDs = deps
	}
	return types, nil
}

func (s *Store) listTypeDependencies(typeID int64) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT depends_on_type_id FROM artifact_type_dependencies
		WHERE artifact_type_id = ?
		ORDER BY depends_on_type_id`, typeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		deps = append(deps, id)
	}
	return deps, rows.Err()
}

// ListStates returns all artifact states.
func (s *Store) ListStates() ([]ArtifactState, error) {
	rows, err := s.db.Query(`SELECT id, name FROM artifact_states ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []ArtifactState
	for rows.Next() {
		var st ArtifactState
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// GetAvailableTransitions returns the states reachable from the given
// state along seeded edges. An empty result means the state is terminal.
func (s *Store) GetAvailableTransitions(stateID int64) ([]ArtifactState, error) {
	rows, err := s.db.Query(`
		SELECT st.id, st.name
		FROM state_transitions tr
		JOIN artifact_states st ON st.id = tr.to_state_id
		WHERE tr.from_state_id = ?
		ORDER BY st.id`, stateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []ArtifactState
	for rows.Next() {
		var st ArtifactState
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// HasTransition reports whether an edge exists between two states.
func (s *Store) HasTransition(fromStateID, toStateID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM state_transitions WHERE from_state_id = ? AND to_state_id = ?`,
		fromStateID, toStateID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
