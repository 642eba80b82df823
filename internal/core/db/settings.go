package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/neilberkman/escriba/internal/core/models"
)

const settingsKey = "settings"

// LoadSettings returns the saved settings blob, empty if none
func (db *DB) LoadSettings() (models.Settings, error) {
	var s models.Settings
	var raw string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// SaveSettings replaces the settings blob
func (db *DB) SaveSettings(s models.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, settingsKey, string(data), toMillis(db.now()))
	return err
}

// ToggleContext selects path for the project if unselected, and unselects it
// otherwise. Returns whether path is selected afterwards.
func (db *DB) ToggleContext(owner, repo, path string) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	projectID, err := db.projectID(tx, owner, repo)
	if err != nil {
		return false, err
	}

	res, err := tx.Exec(`DELETE FROM context_files WHERE project_id = ? AND path = ?`, projectID, path)
	if err != nil {
		return false, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	selected := removed == 0
	if selected {
		_, err = tx.Exec(`
			INSERT INTO context_files (project_id, path, selected_at) VALUES (?, ?, ?)
		`, projectID, path, toMillis(db.now()))
		if err != nil {
			return false, err
		}
	}
	return selected, tx.Commit()
}

// ListContext returns the selected context paths of a project, sorted
func (db *DB) ListContext(owner, repo string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT c.path FROM context_files c
		JOIN projects p ON p.id = c.project_id
		WHERE p.owner = ? AND p.repo = ?
		ORDER BY c.path
	`, owner, repo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
