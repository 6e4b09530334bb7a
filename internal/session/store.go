package session

import (
	"context"
	"sync"
	"time"
)

// Defaults seed newly created sessions.
type Defaults struct {
	OfferA string
	OfferB string
}

// Store resolves a session key to its conversation state. Implementations
// must return the same session for repeated calls with the same key and must
// create at most one session per key under concurrent first-touch.
type Store interface {
	GetOrCreate(key string) *Session
	Len() int
}

// MemoryStore is the in-process session store. Sessions live until the
// process exits, or until the janitor expires them when a TTL is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults Defaults
	ttl      time.Duration
	onExpire func(*Session)
}

func NewMemoryStore(defaults Defaults, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		defaults: defaults,
		ttl:      ttl,
	}
}

// SetExpireHook registers a callback invoked for each session the janitor
// removes. Must be set before StartJanitor.
func (s *MemoryStore) SetExpireHook(hook func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = hook
}

func (s *MemoryStore) GetOrCreate(key string) *Session {
	now := time.Now().UTC()

	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		sess.touch(now)
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		sess.touch(now)
		return sess
	}
	sess = &Session{
		Key:       key,
		Stage:     StageIntro,
		OfferA:    s.defaults.OfferA,
		OfferB:    s.defaults.OfferB,
		StartedAt: now,
	}
	sess.touch(now)
	s.sessions[key] = sess
	return sess
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor periodically removes sessions idle for longer than the TTL.
// With a zero TTL the janitor never starts and sessions are process-lived.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.expireIdle()
			}
		}
	}()
}

func (s *MemoryStore) expireIdle() {
	now := time.Now().UTC()
	var expired []*Session

	s.mu.Lock()
	for key, sess := range s.sessions {
		if sess.idleSince(now) < s.ttl {
			continue
		}
		delete(s.sessions, key)
		expired = append(expired, sess)
	}
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		for _, sess := range expired {
			hook(sess)
		}
	}
}
