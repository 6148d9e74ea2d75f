package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"servigo-client/models"
)

// ErrNoSession is returned when no session has been saved yet.
var ErrNoSession = errors.New("no active session, log in first")

// Session is the locally persisted auth state: the bearer token plus a cached
// copy of the account. This is the only client-side persistence; everything
// else is re-fetched per request.
type Session struct {
	AccessToken string          `json:"access_token"`
	Account     *models.Account `json:"account,omitempty"`
	SavedAt     time.Time       `json:"saved_at"`
}

// Token implements TokenSource.
func (s *Session) Token() (string, error) {
	if s == nil || s.AccessToken == "" {
		return "", ErrNoSession
	}
	return s.AccessToken, nil
}

// Role returns the session's role, preferring the cached account and falling
// back to the token claims.
func (s *Session) Role() models.Role {
	if s.Account != nil && s.Account.IsValidRole() {
		return s.Account.Role
	}
	if claims, err := s.Claims(); err == nil && claims.Role != "" {
		return claims.Role
	}
	return models.RoleUser
}

// Claims are the token fields the client cares about for display and gating.
type Claims struct {
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Claims decodes the access token WITHOUT verifying its signature. The client
// has no signing secret; the claims are used for UI gating only and the server
// re-authenticates every request.
func (s *Session) Claims() (*Claims, error) {
	token, err := s.Token()
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token claims an expiry in the past. A token
// without readable claims is treated as live; the server will reject it if not.
func (s *Session) Expired() bool {
	claims, err := s.Claims()
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}

// SessionStore persists the session to a single JSON file.
type SessionStore struct {
	Path string
}

// NewSessionStore creates a store writing to path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{Path: path}
}

// Load reads the saved session. Returns ErrNoSession when the file is absent.
func (st *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(st.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if session.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &session, nil
}

// Save writes the session with owner-only permissions.
func (st *SessionStore) Save(session *Session) error {
	session.SavedAt = time.Now()
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if dir := filepath.Dir(st.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := os.WriteFile(st.Path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear removes the saved session, if any.
func (st *SessionStore) Clear() error {
	if err := os.Remove(st.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
