package main

import (
	"context"
	"sync"
	"time"
)

// SessionStore maps session ids to sessions and player ids to their
// session, so inbound messages can be routed. A player id is never
// mapped to more than one active session.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	players  map[string]string
}

func newSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		players:  make(map[string]string),
	}
}

func (st *SessionStore) add(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, slot := range s.slots {
		if _, taken := st.players[slot.playerID]; taken {
			return ErrAlreadyInSession
		}
	}

	st.sessions[s.id] = s
	for _, slot := range s.slots {
		st.players[slot.playerID] = s.id
	}

	return nil
}

func (st *SessionStore) bySession(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.sessions[id]
}

func (st *SessionStore) byPlayer(playerID string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	id, ok := st.players[playerID]
	if !ok {
		return nil
	}
	return st.sessions[id]
}

// remove drops the session and both routing entries. Stale routes
// belonging to a different session are left alone.
func (st *SessionStore) remove(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, s.id)
	for _, slot := range s.slots {
		if st.players[slot.playerID] == s.id {
			delete(st.players, slot.playerID)
		}
	}
}

func (st *SessionStore) count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.sessions)
}

func (st *SessionStore) snapshot() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// reaperLoop is the backstop behind the per-session guard timer: any
// session idle past the configured timeout is expired through the
// normal settlement or refund path.
func (st *SessionStore) reaperLoop(ctx context.Context, e *Engine) {
	ticker := time.NewTicker(e.cfg.sessionTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-e.cfg.sessionTimeout)
			for _, s := range st.snapshot() {
				if s.touchedAt().Before(cutoff) {
					logf(e.cfg, "GAME: reaping idle session %s", s.id)
					e.expireSession(s)
				}
			}
		}
	}
}
