package db

import (
	"database/sql"
	"time"
)

// Stats summarizes local activity
type Stats struct {
	TotalProjects   int
	TotalSaves      int
	DirectSaves     int
	PullRequests    int
	Drafts          int
	FirstSave       time.Time
	LastSave        time.Time
	MostEditedPath  string
	MostEditedCount int
}

// GetStats returns save statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&stats.TotalProjects)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN mode = 'direct' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN pr_number > 0 THEN 1 ELSE 0 END), 0)
		FROM sync_log
	`).Scan(&stats.TotalSaves, &stats.DirectSaves, &stats.PullRequests)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*) FROM drafts").Scan(&stats.Drafts)
	if err != nil {
		return nil, err
	}

	if stats.TotalSaves > 0 {
		var first, last int64
		err = db.QueryRow("SELECT MIN(created_at), MAX(created_at) FROM sync_log").Scan(&first, &last)
		if err != nil {
			return nil, err
		}
		stats.FirstSave = fromMillis(first)
		stats.LastSave = fromMillis(last)

		var path sql.NullString
		err = db.QueryRow(`
			SELECT project || ':' || path, COUNT(*) as count
			FROM sync_log
			GROUP BY project, path
			ORDER BY count DESC, MAX(created_at) DESC
			LIMIT 1
		`).Scan(&path, &stats.MostEditedCount)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if path.Valid {
			stats.MostEditedPath = path.String
		}
	}

	return stats, nil
}
