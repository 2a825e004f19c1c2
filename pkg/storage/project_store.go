package storage

import (
	"database/sql"
	"time"
)

// CreateProject inserts a new project.
func (s *Store) CreateProject(name string) (*Project, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO projects (name, created_at, updated_at) VALUES (?, ?, ?)`,
		name, now, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Project{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// FindProjectByID returns the project or nil when absent.
func (s *Store) FindProjectByID(id int64) (*Project, error) {
	var p Project
	err := s.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(
		`SELECT id, name, created_at, updated_at FROM projects ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// RenameProject updates a project's name. Rename is the only permitted
// mutation of a project row.
func (s *Store) RenameProject(id int64, name string) error {
	_, err := s.db.Exec(
		`UPDATE projects SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id,
	)
	return err
}

// DeleteProject removes a project; artifacts, versions, and interactions
// cascade via foreign keys.
func (s *Store) DeleteProject(id int64) error {
	_, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	return err
}
