package main

import (
	"sync"
	"time"
)

// disconnectRecord tracks one player who dropped mid-round and the
// grace timer that will force-finish their session.
type disconnectRecord struct {
	playerID  string
	sessionID string
	droppedAt time.Time
	timer     *time.Timer
}

// ReconnectCoordinator owns the per-player grace timers. A successful
// reconnect cancels the timer; expiry force-finishes the session with
// whatever was submitted before the drop.
type ReconnectCoordinator struct {
	engine *Engine

	mu      sync.Mutex
	records map[string]*disconnectRecord
}

func newReconnectCoordinator(e *Engine) *ReconnectCoordinator {
	return &ReconnectCoordinator{
		engine:  e,
		records: make(map[string]*disconnectRecord),
	}
}

// watch starts a grace timer for a player who just dropped out of the
// given session. A second drop for the same player resets the window.
func (rc *ReconnectCoordinator) watch(s *Session, playerID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if old, ok := rc.records[playerID]; ok {
		old.timer.Stop()
	}

	rec := &disconnectRecord{
		playerID:  playerID,
		sessionID: s.id,
		droppedAt: time.Now(),
	}
	rec.timer = time.AfterFunc(rc.engine.cfg.gracePeriod, func() {
		rc.expire(rec)
	})
	rc.records[playerID] = rec

	logf(rc.engine.cfg, "GAME: grace timer started for %q in session %s", playerID, s.id)
}

// cancel stops and discards a player's grace timer, if any.
func (rc *ReconnectCoordinator) cancel(playerID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rec, ok := rc.records[playerID]; ok {
		rec.timer.Stop()
		delete(rc.records, playerID)
	}
}

// drop discards every record belonging to a session, used when the
// session settles through some other path first.
func (rc *ReconnectCoordinator) drop(sessionID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for id, rec := range rc.records {
		if rec.sessionID == sessionID {
			rec.timer.Stop()
			delete(rc.records, id)
		}
	}
}

func (rc *ReconnectCoordinator) expire(rec *disconnectRecord) {
	rc.mu.Lock()
	current, ok := rc.records[rec.playerID]
	if !ok || current != rec {
		// Superseded by a reconnect or a newer drop.
		rc.mu.Unlock()
		return
	}
	delete(rc.records, rec.playerID)
	rc.mu.Unlock()

	rc.engine.graceExpired(rec)
}

func (rc *ReconnectCoordinator) pending() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return len(rc.records)
}
