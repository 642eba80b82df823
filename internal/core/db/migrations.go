package db

import (
	"database/sql"
	"fmt"
)

// runMigrations applies database migrations for existing databases
func (db *DB) runMigrations() error {
	// Migration 1: record the commit created by each save
	if err := db.migration001AddCommitSHA(); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	// Migration 2: drop auth sessions created before expiry was enforced
	if err := db.migration002PurgeUnboundedSessions(); err != nil {
		return fmt.Errorf("migration 002: %w", err)
	}

	return nil
}

// hasColumn reports whether table has column
func (db *DB) hasColumn(table, column string) (bool, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&count)
	return count > 0, err
}

// migration001AddCommitSHA adds commit_sha to sync_log
func (db *DB) migration001AddCommitSHA() error {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='sync_log'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	has, err := db.hasColumn("sync_log", "commit_sha")
	if err != nil {
		return err
	}
	if !has {
		if _, err := db.conn.Exec(`ALTER TABLE sync_log ADD COLUMN commit_sha TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add commit_sha column: %w", err)
		}
	}
	return nil
}

// migration002PurgeUnboundedSessions removes sessions without an expiry
func (db *DB) migration002PurgeUnboundedSessions() error {
	_, err := db.conn.Exec(`DELETE FROM auth_sessions WHERE expires_at <= 0`)
	return err
}
