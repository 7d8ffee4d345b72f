// Package session provides the in-memory verification session store.
package session

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when no session exists for a user.
	ErrSessionNotFound = errors.New("session not found")
)

// Seed carries the immutable fields of a new session.
type Seed struct {
	UserID        string
	GuildID       string
	Username      string
	Discriminator string
	JoinedAt      time.Time
}

// Store maps user IDs to in-flight sessions. All mutation goes through
// Update or Claim so that a read-modify-write is never interleaved with
// another event for the same user.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

// Create starts a new session, replacing any existing one for the user.
func (s *Store) Create(seed Seed) (domain.Session, bool) {
	now := s.now()
	joined := seed.JoinedAt
	if joined.IsZero() {
		joined = now
	}
	sess := &domain.Session{
		ID:            uuid.NewString(),
		UserID:        seed.UserID,
		GuildID:       seed.GuildID,
		Username:      seed.Username,
		Discriminator: seed.Discriminator,
		JoinedAt:      joined.UTC(),
		CreatedAt:     now,
		Answers:       []string{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, replaced := s.sessions[seed.UserID]
	s.sessions[seed.UserID] = sess
	return sess.Clone(), replaced
}

// Get returns a copy of the user's session.
func (s *Store) Get(userID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return domain.Session{}, false
	}
	return sess.Clone(), true
}

// Update applies fn to the user's session under the store lock.
// If fn returns an error the session is left unchanged and the error is returned.
func (s *Store) Update(userID string, fn func(*domain.Session) error) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return domain.Session{}, ErrSessionNotFound
	}
	working := sess.Clone()
	if err := fn(&working); err != nil {
		return sess.Clone(), err
	}
	*sess = working
	return working.Clone(), nil
}

// Claim marks a fully answered session as completing. It succeeds at most
// once per session; later calls and calls for unknown users return false.
func (s *Store) Claim(userID string, questionCount int) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || sess.Completing || !sess.Answered(questionCount) {
		return domain.Session{}, false
	}
	sess.Completing = true
	sess.Await = domain.AwaitNone
	return sess.Clone(), true
}

// Delete removes the user's session unconditionally.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// DeleteIf removes the user's session only if it is still the given generation.
func (s *Store) DeleteIf(userID, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || sess.ID != sessionID {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Len returns the number of in-flight sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// List returns copies of all sessions ordered by creation time.
func (s *Store) List() []domain.Session {
	s.mu.Lock()
	out := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Sweep deletes sessions created more than maxAge before now that are not
// completing, and returns what it removed.
func (s *Store) Sweep(maxAge time.Duration, now time.Time) []domain.Session {
	threshold := now.Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []domain.Session
	for userID, sess := range s.sessions {
		if sess.Completing || !sess.CreatedAt.Before(threshold) {
			continue
		}
		removed = append(removed, sess.Clone())
		delete(s.sessions, userID)
	}
	if len(removed) > 0 {
		slog.Debug("Swept abandoned sessions", "count", len(removed))
	}
	return removed
}
