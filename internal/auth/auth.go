// Package auth provides password hashing and in-memory login sessions.
// Sessions live in process memory only; a restart logs everyone out.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type session struct {
	username string
	expires  time.Time
}

// SessionStore issues and validates opaque session tokens. Safe for
// concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a fresh token for the user.
func (s *SessionStore) Create(username string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.sessions[token] = session{username: username, expires: s.now().Add(s.ttl)}
	return token, nil
}

// Validate returns the logged-in username for a token, or false for unknown
// or expired tokens. Expired tokens are removed on sight.
func (s *SessionStore) Validate(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	if s.now().After(sess.expires) {
		delete(s.sessions, token)
		return "", false
	}
	return sess.username, true
}

// Destroy invalidates a token. Unknown tokens are a no-op.
func (s *SessionStore) Destroy(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *SessionStore) pruneLocked() {
	now := s.now()
	for token, sess := range s.sessions {
		if now.After(sess.expires) {
			delete(s.sessions, token)
		}
	}
}
