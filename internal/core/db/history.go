package db

import (
	"fmt"
	"time"

	"github.com/neilberkman/escriba/internal/core/models"
)

// RecordSync logs a successful save
func (db *DB) RecordSync(e models.HistoryEntry, commitSHA string) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = db.now()
	}
	res, err := db.conn.Exec(`
		INSERT INTO sync_log (project, path, branch, mode, old_sha, new_sha, commit_sha, pr_number, pr_url, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Project, e.Path, e.Branch, string(e.Mode), e.OldSHA, e.NewSHA, commitSHA, e.PRNumber, e.PRURL, e.Message, toMillis(createdAt))
	if err != nil {
		return 0, fmt.Errorf("failed to record sync: %w", err)
	}
	return res.LastInsertId()
}

// HistoryFilter narrows ListHistory
type HistoryFilter struct {
	Project string    // "owner/repo", empty for all
	Since   time.Time // zero for no lower bound
	Limit   int       // 0 for no limit
}

// ListHistory returns saves, newest first
func (db *DB) ListHistory(f HistoryFilter) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, project, path, branch, mode, old_sha, new_sha, pr_number, pr_url, message, created_at
		FROM sync_log
		WHERE created_at >= ?`
	args := []interface{}{toMillis(f.Since)}
	if f.Project != "" {
		query += ` AND project = ?`
		args = append(args, f.Project)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var mode string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Project, &e.Path, &e.Branch, &mode, &e.OldSHA, &e.NewSHA, &e.PRNumber, &e.PRURL, &e.Message, &createdAt); err != nil {
			return nil, err
		}
		e.Mode = models.SaveMode(mode)
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
