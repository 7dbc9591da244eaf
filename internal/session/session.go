// Package session holds the authenticated identity handed to the engine.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Context is the read-only view of the current session.
// A blank email means unauthenticated.
type Context interface {
	CurrentEmail() string
	Token() string
}

// Session is an immutable login result.
type Session struct {
	Email     string `json:"email"`
	UserToken string `json:"token"`
	ExpiresIn string `json:"expiresIn,omitempty"`
}

// CurrentEmail implements Context.
func (s Session) CurrentEmail() string { return strings.TrimSpace(s.Email) }

// Token implements Context.
func (s Session) Token() string { return s.UserToken }

// Anonymous is the unauthenticated session.
var Anonymous Session

// Store persists a Session as JSON at Path.
type Store struct {
	Path string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the stored session. A missing file yields Anonymous.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Anonymous, fmt.Errorf("invalid session file: %w", err)
	}
	return sess, nil
}

// Save writes sess with mode 0600.
func (s *Store) Save(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}

// Clear removes the stored session. Clearing an absent session is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
