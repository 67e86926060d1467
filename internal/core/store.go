package core

// store.go keeps conversion sessions in memory and expires idle ones.
//
// Nothing is persisted: a session lives until it has been idle for the
// configured TTL, or until the store is full and it is the least recently
// used one.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StoreConfig controls session lifetime.
type StoreConfig struct {
	TTL         time.Duration // idle time before a session is dropped (default: 30m)
	MaxSessions int           // upper bound; the least recently used is evicted (default: 1000)
	Session     SessionConfig // applied to every new session
}

type storeEntry struct {
	session    *Session
	lastAccess time.Time
}

// Store is a concurrency-safe set of sessions keyed by ID.
type Store struct {
	cfg StoreConfig
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*storeEntry
}

// NewStore creates an empty store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	return &Store{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*storeEntry),
	}
}

// Create starts a new idle session with a random ID.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.createLocked(uuid.NewString())
}

// Get returns the session for id and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok || st.expired(e) {
		return nil, ErrSessionNotFound
	}
	e.lastAccess = st.now()
	return e.session, nil
}

// GetOrCreate returns the session for id, or a fresh one when id is unknown
// or expired. created reports whether a new session was made.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if e, ok := st.sessions[id]; ok && !st.expired(e) {
		e.lastAccess = st.now()
		return e.session, false
	}
	if id != "" {
		delete(st.sessions, id)
	}
	return st.createLocked(uuid.NewString()), true
}

// Delete removes a session. Unknown IDs are ignored.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops every expired session and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, e := range st.sessions {
		if st.expired(e) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired sessions every interval until ctx is done.
// It blocks; run it in its own goroutine.
func (st *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("session janitor started", "interval", interval, "ttl", st.cfg.TTL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n, "remaining", st.Len())
			}
		}
	}
}

func (st *Store) createLocked(id string) *Session {
	if len(st.sessions) >= st.cfg.MaxSessions {
		st.evictOldestLocked()
	}
	s := NewSession(id, st.cfg.Session)
	st.sessions[id] = &storeEntry{session: s, lastAccess: st.now()}
	return s
}

func (st *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range st.sessions {
		if oldestID == "" || e.lastAccess.Before(oldest) {
			oldestID, oldest = id, e.lastAccess
		}
	}
	if oldestID != "" {
		delete(st.sessions, oldestID)
		slog.Debug("session evicted", "session_id", oldestID)
	}
}

func (st *Store) expired(e *storeEntry) bool {
	return st.now().Sub(e.lastAccess) > st.cfg.TTL
}
