package db

import (
	"database/sql"
	"fmt"

	"github.com/neilberkman/escriba/internal/core/models"
)

// AddProject inserts a project, or updates the default branch of an existing one
func (db *DB) AddProject(p models.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	addedAt := p.AddedAt
	if addedAt.IsZero() {
		addedAt = db.now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO projects (owner, repo, default_branch, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, repo) DO UPDATE SET
			default_branch = excluded.default_branch
	`, p.Owner, p.Repo, p.DefaultBranch, toMillis(addedAt))
	if err != nil {
		return fmt.Errorf("failed to add project %s: %w", p.Key(), err)
	}
	return nil
}

// RemoveProject deletes a project and its context selection.
// Reports whether the project existed.
func (db *DB) RemoveProject(owner, repo string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM projects WHERE owner = ? AND repo = ?`, owner, repo)
	if err != nil {
		return false, fmt.Errorf("failed to remove project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListProjects returns projects in the order they were added
func (db *DB) ListProjects() ([]models.Project, error) {
	rows, err := db.conn.Query(`
		SELECT owner, repo, default_branch, added_at
		FROM projects
		ORDER BY added_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		var addedAt int64
		if err := rows.Scan(&p.Owner, &p.Repo, &p.DefaultBranch, &addedAt); err != nil {
			return nil, err
		}
		p.AddedAt = fromMillis(addedAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject returns a project, or nil if it is not registered
func (db *DB) GetProject(owner, repo string) (*models.Project, error) {
	p := models.Project{Owner: owner, Repo: repo}
	var addedAt int64
	err := db.conn.QueryRow(`
		SELECT default_branch, added_at FROM projects WHERE owner = ? AND repo = ?
	`, owner, repo).Scan(&p.DefaultBranch, &addedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.AddedAt = fromMillis(addedAt)
	return &p, nil
}

func (db *DB) projectID(q queryer, owner, repo string) (int64, error) {
	var id int64
	err := q.QueryRow(`SELECT id FROM projects WHERE owner = ? AND repo = ?`, owner, repo).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("project %s/%s is not registered", owner, repo)
	}
	return id, err
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}
