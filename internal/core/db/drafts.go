package db

import (
	"database/sql"

	"github.com/neilberkman/escriba/internal/core/models"
)

// SaveDraft remembers where a pulled file came from, replacing any previous record
func (db *DB) SaveDraft(d models.Draft) error {
	pulledAt := d.PulledAt
	if pulledAt.IsZero() {
		pulledAt = db.now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO drafts (local_path, owner, repo, path, branch, sha, pulled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_path) DO UPDATE SET
			owner = excluded.owner,
			repo = excluded.repo,
			path = excluded.path,
			branch = excluded.branch,
			sha = excluded.sha,
			pulled_at = excluded.pulled_at
	`, d.LocalPath, d.Project.Owner, d.Project.Repo, d.Path, d.Branch, d.SHA, toMillis(pulledAt))
	return err
}

// GetDraft returns the draft pulled to localPath, or nil
func (db *DB) GetDraft(localPath string) (*models.Draft, error) {
	d := models.Draft{LocalPath: localPath}
	var pulledAt int64
	err := db.conn.QueryRow(`
		SELECT owner, repo, path, branch, sha, pulled_at FROM drafts WHERE local_path = ?
	`, localPath).Scan(&d.Project.Owner, &d.Project.Repo, &d.Path, &d.Branch, &d.SHA, &pulledAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.PulledAt = fromMillis(pulledAt)
	return &d, nil
}

// DeleteDraft forgets a draft
func (db *DB) DeleteDraft(localPath string) error {
	_, err := db.conn.Exec(`DELETE FROM drafts WHERE local_path = ?`, localPath)
	return err
}
