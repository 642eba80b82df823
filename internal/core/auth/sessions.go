package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neilberkman/escriba/internal/core/db"
	"github.com/neilberkman/escriba/internal/core/errs"
)

// SessionTTL is how long a browser login lasts
const SessionTTL = 30 * 24 * time.Hour

// Store persists sessions
type Store interface {
	CreateAuthSession(s db.AuthSession) error
	GetAuthSession(id string) (*db.AuthSession, error)
	DeleteAuthSession(id string) error
	PurgeExpiredAuthSessions() (int64, error)
}

// Identity is who a request acts as
type Identity struct {
	SessionID string
	Login     string
	Token     string
}

// Sessions issues and resolves browser sessions. With a static token set,
// every request is that token's user and no login is needed.
type Sessions struct {
	store       Store
	staticToken string
	staticLogin string
	now         func() time.Time
}

// NewSessions creates a session manager over store
func NewSessions(store Store) *Sessions {
	return &Sessions{store: store, now: time.Now}
}

// WithStaticToken switches to personal access token mode
func (s *Sessions) WithStaticToken(token, login string) *Sessions {
	s.staticToken = token
	s.staticLogin = login
	return s
}

// Static reports whether a personal access token is in use
func (s *Sessions) Static() bool {
	return s.staticToken != ""
}

// Create stores a new session for token and returns its ID
func (s *Sessions) Create(token, login string) (*Identity, time.Time, error) {
	id := uuid.NewString()
	now := s.now()
	expires := now.Add(SessionTTL)
	err := s.store.CreateAuthSession(db.AuthSession{
		ID:        id,
		Token:     token,
		Login:     login,
		CreatedAt: now,
		ExpiresAt: expires,
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}
	return &Identity{SessionID: id, Login: login, Token: token}, expires, nil
}

// Resolve returns the identity for a session cookie value
func (s *Sessions) Resolve(id string) (*Identity, error) {
	if s.Static() {
		return &Identity{Login: s.staticLogin, Token: s.staticToken}, nil
	}
	if id == "" {
		return nil, errs.New(errs.KindUnauthorized, "auth.resolve", 0, "not logged in")
	}
	sess, err := s.store.GetAuthSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, errs.New(errs.KindUnauthorized, "auth.resolve", 0, "session expired or unknown")
	}
	return &Identity{SessionID: sess.ID, Login: sess.Login, Token: sess.Token}, nil
}

// Delete logs a session out
func (s *Sessions) Delete(id string) error {
	if id == "" {
		return nil
	}
	return s.store.DeleteAuthSession(id)
}

// Purge drops expired sessions
func (s *Sessions) Purge() (int64, error) {
	return s.store.PurgeExpiredAuthSessions()
}
