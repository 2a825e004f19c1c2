package storage

import (
	"database/sql"
	"time"
)

const artifactDetailQuery = `
	SELECT a.id, a.project_id, a.artifact_type_id, a.name, a.state_id,
	       a.current_version_id, a.created_at,
	       p.name,
	       t.name, t.slug, t.rank, t.repeatable, t.lifecycle_phase_id,
	       ph.name,
	       st.name,
	       COALESCE(v.version_number, 0), COALESCE(v.content, '')
	FROM artifacts a
	JOIN projects p ON p.id = a.project_id
	JOIN artifact_types t ON t.id = a.artifact_type_id
	JOIN lifecycle_phases ph ON ph.id = t.lifecycle_phase_id
	JOIN artifact_states st ON st.id = a.state_id
	LEFT JOIN artifact_versions v ON v.id = a.current_version_id`

func scanArtifactDetail(row interface{ Scan(...any) error }) (*ArtifactDetail, error) {
	var d ArtifactDetail
	var currentVersionID sql.NullInt64
	err := row.Scan(
		&d.ID, &d.ProjectID, &d.ArtifactTypeID, &d.Name, &d.StateID,
		&currentVersionID, &d.CreatedAt,
		&d.ProjectName,
		&d.TypeName, &d.TypeSlug, &d.TypeRank, &d.TypeRepeatable, &d.PhaseID,
		&d.PhaseName,
		&d.StateName,
		&d.CurrentVersionNumber, &d.CurrentContent,
	)
	if err != nil {
		return nil, err
	}
	if currentVersionID.Valid {
		d.CurrentVersionID = &currentVersionID.Int64
	}
	return &d, nil
}

// CreateArtifact inserts an artifact row in its initial state.
func (s *Store) CreateArtifact(projectID, typeID int64, name string, stateID int64) (*Artifact, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(`
		INSERT INTO artifacts (project_id, artifact_type_id, name, state_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		projectID, typeID, name, stateID, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Artifact{
		ID:             id,
		ProjectID:      projectID,
		ArtifactTypeID: typeID,
		Name:           name,
		StateID:        stateID,
		CreatedAt:      now,
	}, nil
}

// FindArtifactByID returns the artifact with type, state, project, and
// current version joined, or nil when absent.
func (s *Store) FindArtifactByID(id int64) (*ArtifactDetail, error) {
	detail, err := scanArtifactDetail(s.db.QueryRow(artifactDetailQuery+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// GetArtifactsByType returns content-joined artifacts of one type in a
// project with id < beforeID, earliest id first. The earlier-id-first
// ordering is what makes "first returned item" mean "predecessor".
func (s *Store) GetArtifactsByType(projectID, typeID, beforeID int64) ([]ArtifactDetail, error) {
	rows, err := s.db.Query(artifactDetailQuery+`
		WHERE a.project_id = ? AND a.artifact_type_id = ? AND a.id < ?
		ORDER BY a.id ASC`,
		projectID, typeID, beforeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []ArtifactDetail
	for rows.Next() {
		d, err := scanArtifactDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

// GetArtifactsByProjectAndPhase returns content-joined artifacts for one
// project filtered to a lifecycle phase, in creation order.
func (s *Store) GetArtifactsByProjectAndPhase(projectID, phaseID int64) ([]ArtifactDetail, error) {
	rows, err := s.db.Query(artifactDetailQuery+`
		WHERE a.project_id = ? AND t.lifecycle_phase_id = ?
		ORDER BY a.id ASC`,
		projectID, phaseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []ArtifactDetail
	for rows.Next() {
		d, err := scanArtifactDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

// CountArtifactsByType counts artifacts of a type within a project.
// Used for the one-per-type rule on non-repeatable types.
func (s *Store) CountArtifactsByType(projectID, typeID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM artifacts WHERE project_id = ? AND artifact_type_id = ?`,
		projectID, typeID,
	).Scan(&count)
	return count, err
}

// CreateArtifactVersion appends the next version for an artifact and
// repoints current_version_id at it, all in one transaction so version
// numbers stay gapless under the busy-timeout retry behavior of SQLite.
func (s *Store) CreateArtifactVersion(artifactID int64, content string) (*ArtifactVersion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}

	var nextNumber int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM artifact_versions WHERE artifact_id = ?`,
		artifactID,
	).Scan(&nextNumber); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	result, err := tx.Exec(`
		INSERT INTO artifact_versions (artifact_id, version_number, content, created_at)
		VALUES (?, ?, ?, ?)`,
		artifactID, nextNumber, content, now,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	versionID, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if _, err := tx.Exec(
		`UPDATE artifacts SET current_version_id = ? WHERE id = ?`,
		versionID, artifactID,
	); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ArtifactVersion{
		ID:            versionID,
		ArtifactID:    artifactID,
		VersionNumber: nextNumber,
		Content:       content,
		CreatedAt:     now,
	}, nil
}

// UpdateArtifactState sets an artifact's state directly. Edge validation
// is the orchestrator's job; forced transitions (update implies active)
// come through here too.
func (s *Store) UpdateArtifactState(artifactID, stateID int64) error {
	_, err := s.db.Exec(`UPDATE artifacts SET state_id = ? WHERE id = ?`, stateID, artifactID)
	return err
}

// UpdateArtifactName renames an artifact.
func (s *Store) UpdateArtifactName(artifactID int64, name string) error {
	_, err := s.db.Exec(`UPDATE artifacts SET name = ? WHERE id = ?`, name, artifactID)
	return err
}

// DeleteArtifact removes an artifact row. Used to unwind a freshly
// inserted artifact when context assembly rejects the creation.
func (s *Store) DeleteArtifact(artifactID int64) error {
	_, err := s.db.Exec(`DELETE FROM artifacts WHERE id = ?`, artifactID)
	return err
}
