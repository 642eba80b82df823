package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neilberkman/escriba/internal/core/state"
)

// LoadState implements state.Store
func (db *DB) LoadState(ctx context.Context) (*state.State, error) {
	st := state.New()

	settings, err := db.LoadSettings()
	if err != nil {
		return nil, err
	}
	st.Settings = settings

	projects, err := db.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	st.Projects = projects

	for _, p := range projects {
		paths, err := db.ListContext(p.Owner, p.Repo)
		if err != nil {
			return nil, fmt.Errorf("failed to load context for %s: %w", p.Key(), err)
		}
		if len(paths) > 0 {
			st.Context[p.Key()] = paths
		}
	}
	return st, nil
}

// SaveState implements state.Store. Projects, context selections and
// settings are replaced in one transaction.
func (db *DB) SaveState(ctx context.Context, st *state.State) error {
	settings, err := json.Marshal(st.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := toMillis(db.now())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, settingsKey, string(settings), now); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	keep := make(map[string]bool, len(st.Projects))
	for _, p := range st.Projects {
		if err := p.Validate(); err != nil {
			return err
		}
		keep[p.Key()] = true
		addedAt := toMillis(p.AddedAt)
		if addedAt == 0 {
			addedAt = now
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projects (owner, repo, default_branch, added_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(owner, repo) DO UPDATE SET
				default_branch = excluded.default_branch,
				added_at = excluded.added_at
		`, p.Owner, p.Repo, p.DefaultBranch, addedAt); err != nil {
			return fmt.Errorf("save project %s: %w", p.Key(), err)
		}
	}

	// Remove projects that are gone; context rows cascade
	rows, err := tx.QueryContext(ctx, `SELECT owner, repo FROM projects`)
	if err != nil {
		return err
	}
	var stale [][2]string
	for rows.Next() {
		var owner, repo string
		if err := rows.Scan(&owner, &repo); err != nil {
			rows.Close()
			return err
		}
		if !keep[owner+"/"+repo] {
			stale = append(stale, [2]string{owner, repo})
		}
	}
	rows.Close()
	for _, s := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE owner = ? AND repo = ?`, s[0], s[1]); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM context_files`); err != nil {
		return err
	}
	for _, p := range st.Projects {
		paths := st.Context[p.Key()]
		if len(paths) == 0 {
			continue
		}
		id, err := db.projectID(tx, p.Owner, p.Repo)
		if err != nil {
			return err
		}
		for _, path := range paths {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO context_files (project_id, path, selected_at) VALUES (?, ?, ?)
			`, id, path, now); err != nil {
				return fmt.Errorf("save context %s: %w", path, err)
			}
		}
	}

	return tx.Commit()
}

var _ state.Store = (*DB)(nil)
