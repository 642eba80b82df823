package db

import (
	"database/sql"
	"time"
)

// AuthSession maps a browser cookie to a GitHub token
type AuthSession struct {
	ID        string
	Token     string
	Login     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// CreateAuthSession stores a login
func (db *DB) CreateAuthSession(s AuthSession) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = db.now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO auth_sessions (id, token, login, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.Token, s.Login, toMillis(createdAt), toMillis(s.ExpiresAt))
	return err
}

// GetAuthSession returns an unexpired session, or nil
func (db *DB) GetAuthSession(id string) (*AuthSession, error) {
	s := AuthSession{ID: id}
	var createdAt, expiresAt int64
	err := db.conn.QueryRow(`
		SELECT token, login, created_at, expires_at FROM auth_sessions
		WHERE id = ? AND expires_at > ?
	`, id, toMillis(db.now())).Scan(&s.Token, &s.Login, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt = fromMillis(createdAt)
	s.ExpiresAt = fromMillis(expiresAt)
	return &s, nil
}

// DeleteAuthSession logs a session out
func (db *DB) DeleteAuthSession(id string) error {
	_, err := db.conn.Exec(`DELETE FROM auth_sessions WHERE id = ?`, id)
	return err
}

// PurgeExpiredAuthSessions deletes expired sessions and returns how many
func (db *DB) PurgeExpiredAuthSessions() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, toMillis(db.now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
