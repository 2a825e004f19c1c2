package storage

import (
	"database/sql"
	"time"
)

// CreateInteraction appends one dialogue turn at the given sequence
// number. Sequence assignment belongs to the orchestrator, not here; the
// unique (artifact_id, sequence_number) constraint is the backstop.
func (s *Store) CreateInteraction(artifactID int64, versionID *int64, role, content string, sequenceNumber int) (*Interaction, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(`
		INSERT INTO artifact_interactions (artifact_id, version_id, role, content, sequence_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		artifactID, nullIfZero(versionID), role, content, sequenceNumber, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Interaction{
		ID:             id,
		ArtifactID:     artifactID,
		VersionID:      versionID,
		Role:           role,
		Content:        content,
		SequenceNumber: sequenceNumber,
		CreatedAt:      now,
	}, nil
}

// GetLastInteractions returns up to limit interactions newest-first
// along with the next free sequence number for the artifact.
func (s *Store) GetLastInteractions(artifactID int64, limit int) ([]Interaction, int, error) {
	rows, err := s.db.Query(`
		SELECT id, artifact_id, version_id, role, content, sequence_number, created_at
		FROM artifact_interactions
		WHERE artifact_id = ?
		ORDER BY sequence_number DESC
		LIMIT ?`,
		artifactID, limit,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var interactions []Interaction
	for rows.Next() {
		var in Interaction
		var versionID sql.NullInt64
		if err := rows.Scan(&in.ID, &in.ArtifactID, &versionID, &in.Role, &in.Content, &in.SequenceNumber, &in.CreatedAt); err != nil {
			return nil, 0, err
		}
		if versionID.Valid {
			in.VersionID = &versionID.Int64
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var maxSeq int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(sequence_number), 0) FROM artifact_interactions WHERE artifact_id = ?`,
		artifactID,
	).Scan(&maxSeq); err != nil {
		return nil, 0, err
	}

	return interactions, maxSeq + 1, nil
}
