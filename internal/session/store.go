package session

import (
	"context"
	"log"
	"sync"
	"time"
)

// Store is a thread-safe in-memory session store with TTL eviction.
//
// Turns for the same session key are serialized: WithSession holds a
// per-entry lock for the duration of fn, so two concurrent requests for
// one key cannot interleave reads and writes. Different keys proceed
// independently.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*entry
}

type entry struct {
	mu         sync.Mutex
	sess       *Session
	lastAccess time.Time
}

// NewStore creates a Store. Sessions idle longer than ttl are treated as
// expired; ttl <= 0 disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*entry),
	}
}

// WithSession runs fn with exclusive access to the session for id,
// creating a fresh session if the key is unseen or its previous state has
// expired. Mutations fn makes to the session persist.
func (s *Store) WithSession(id string, fn func(*Session) error) error {
	now := time.Now()

	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok || s.expired(e, now) {
		e = &entry{sess: New(id)}
		s.sessions[id] = e
	}
	e.lastAccess = now
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// Delete removes a session. Idempotent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Reap removes expired sessions and returns how many were evicted.
// Sessions with a turn in flight are skipped and picked up next cycle.
func (s *Store) Reap() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		if !s.expired(e, now) {
			continue
		}
		if !e.mu.TryLock() {
			continue
		}
		e.mu.Unlock()
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}

// StartReaper reaps expired sessions every interval until ctx is canceled.
func (s *Store) StartReaper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Reap(); n > 0 {
					log.Printf("Reaped %d expired interview session(s)", n)
				}
			}
		}
	}()
}

// expired reports whether e is past the TTL. Caller holds s.mu.
func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastAccess) > s.ttl
}
