package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-runner/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Engines (and their timers) live in process; Redis only carries a liveness
// marker per profile so other instances and operators can see who is mid-quiz.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Engine
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Engine),
	}
}

func (s *SessionStore) Put(profileID string, engine *app.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[profileID] = engine
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(profileID), engine.ID(), s.ttl).Err()
}

func (s *SessionStore) Get(profileID string) (*app.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.sessions[profileID]
	return engine, ok
}

func (s *SessionStore) Delete(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, profileID)
	_ = s.client.Del(context.Background(), s.key(profileID)).Err()
}

func (s *SessionStore) key(profileID string) string {
	return "quiz:live:" + profileID
}
