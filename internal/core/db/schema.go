package db

func (db *DB) initSchema() error {
	schema := `
	-- Projects the user writes in
	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		default_branch TEXT NOT NULL DEFAULT '',
		added_at INTEGER NOT NULL,
		UNIQUE(owner, repo)
	);

	-- Key/value settings; the settings blob lives under key 'settings'
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Context files selected per project
	CREATE TABLE IF NOT EXISTS context_files (
		project_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		selected_at INTEGER NOT NULL,
		PRIMARY KEY (project_id, path),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	-- One row per successful save
	CREATE TABLE IF NOT EXISTS sync_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		path TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		old_sha TEXT NOT NULL DEFAULT '',
		new_sha TEXT NOT NULL DEFAULT '',
		pr_number INTEGER NOT NULL DEFAULT 0,
		pr_url TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sync_log_created_at ON sync_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_sync_log_project ON sync_log(project);

	-- Files pulled to disk by the CLI
	CREATE TABLE IF NOT EXISTS drafts (
		local_path TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		path TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT '',
		sha TEXT NOT NULL DEFAULT '',
		pulled_at INTEGER NOT NULL
	);

	-- Browser logins
	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		login TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires_at ON auth_sessions(expires_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}
