package main

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Engine wires the queue, session store, reconnect coordinator, and
// external store ports together and routes every inbound message.
type Engine struct {
	cfg         *Config
	registry    *Registry
	queue       *MatchQueue
	store       *SessionStore
	reconnects  *ReconnectCoordinator
	inventory   InventoryStore
	leaderboard LeaderboardStore
	dict        Dictionary

	// tick is the countdown tick interval, one second outside tests.
	tick time.Duration
}

func newEngine(cfg *Config, inventory InventoryStore, leaderboard LeaderboardStore, dict Dictionary) *Engine {
	e := &Engine{
		cfg:         cfg,
		registry:    newRegistry(),
		queue:       newMatchQueue(),
		store:       newSessionStore(),
		inventory:   inventory,
		leaderboard: leaderboard,
		dict:        dict,
		tick:        time.Second,
	}
	e.reconnects = newReconnectCoordinator(e)

	return e
}

// dispatch routes one decoded client message. Failures are reported to
// the sender only and never have side effects on the session.
func (e *Engine) dispatch(c *Client, msg ClientMessage) {
	var err error

	switch msg.Type {
	case "find_game":
		err = e.handleFindGame(c, msg.Mode)

	case "cancel_search":
		e.queue.cancel(c.playerID)
		c.trySend(SearchCancelledMessage{Type: "search_cancelled"})
		logf(e.cfg, "QUEUE: %q cancelled search", c.name)

	case "update_wager":
		var s *Session
		s, err = e.sessionFor(c, msg.SessionID)
		if err == nil {
			err = s.handleUpdateWager(c, msg.Wager)
		}

	case "confirm_wager":
		var s *Session
		s, err = e.sessionFor(c, msg.SessionID)
		if err == nil {
			err = s.handleConfirmWager(c, msg.Wager)
		}

	case "leave_wager", "cancel_ready":
		var s *Session
		s, err = e.sessionFor(c, msg.SessionID)
		if err == nil {
			err = s.handleLeave(c)
		}

	case "player_ready":
		var s *Session
		s, err = e.sessionFor(c, msg.SessionID)
		if err == nil {
			err = s.handlePlayerReady(c)
		}

	case "submit_words":
		var s *Session
		s, err = e.sessionFor(c, "")
		if err == nil {
			err = s.handleSubmitWords(c, msg.Words)
		}

	case "reconnect":
		e.handleReconnect(c, msg.SessionID, msg.OldPlayerID)

	default:
		logf(e.cfg, "ERROR: dropping unknown message type %q from %q", msg.Type, c.playerID)
	}

	if err != nil {
		c.trySend(errMessage(err))
	}
}

// sessionFor resolves the session a message refers to, by explicit id
// when present, otherwise by the sender's routing entry.
func (e *Engine) sessionFor(c *Client, sessionID string) (*Session, error) {
	if sessionID != "" {
		s := e.store.bySession(sessionID)
		if s == nil {
			return nil, ErrSessionNotFound
		}
		if !s.hasPlayer(c.playerID) {
			return nil, ErrNotInSession
		}
		return s, nil
	}

	s := e.store.byPlayer(c.playerID)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// =============================================================================
// MATCHMAKING
// =============================================================================

func (e *Engine) handleFindGame(c *Client, mode string) error {
	if mode == "" {
		mode = modeCasual
	}
	if mode != modeCasual && mode != modeWagered {
		return errors.New("unknown game mode: " + mode)
	}

	if e.store.byPlayer(c.playerID) != nil {
		return ErrAlreadyInSession
	}

	partner, waited, err := e.queue.enqueue(c, mode)
	if err != nil {
		return err
	}

	if partner == nil {
		c.trySend(SearchingMessage{
			Type: "searching",
			Mode: mode,
		})
		logf(e.cfg, "QUEUE: %q waiting for a %s match", c.name, mode)
		return nil
	}

	logf(e.cfg, "QUEUE: %q waited %s for this match", partner.name, waited.Round(time.Millisecond))

	return e.createSession(partner, c, mode)
}

// createSession pairs two queue entries into a fresh session. Casual
// matches go straight into the countdown; wagered matches start in the
// wager phase.
func (e *Engine) createSession(a, b *Client, mode string) error {
	wagered := mode == modeWagered
	startPhase := phaseCountdown
	if wagered {
		startPhase = phaseWager
	}

	s := &Session{
		id:      uuid.NewString(),
		wagered: wagered,
		board:   newBoard(),
		engine:  e,
		phase:   startPhase,
		slots: [2]*playerSlot{
			{playerID: a.playerID, name: a.name, client: a, connected: true, wager: WagerMap{}},
			{playerID: b.playerID, name: b.name, client: b, connected: true, wager: WagerMap{}},
		},
		lastActive: time.Now(),
	}

	if err := e.store.add(s); err != nil {
		return err
	}

	duration := int(e.cfg.roundLength.Round(time.Second) / time.Second)
	s.mu.Lock()
	for i := range s.slots {
		s.sendToLocked(i, GameMatchedMessage{
			Type:         "game_matched",
			SessionID:    s.id,
			Board:        s.board,
			Duration:     duration,
			WagerMode:    wagered,
			OpponentName: s.slots[1-i].name,
		})
	}

	logf(e.cfg, "MATCH: paired %q and %q in %s session %s", a.name, b.name, mode, s.id)

	if !wagered {
		s.enterCountdownLocked(false)
	}
	s.mu.Unlock()

	return nil
}

// =============================================================================
// DISCONNECT AND RECONNECT
// =============================================================================

// handleDisconnect is the single exit path for a dead socket: missed
// heartbeat, read error, or normal close.
func (e *Engine) handleDisconnect(c *Client) {
	e.registry.remove(c)
	e.queue.cancel(c.playerID)

	if s := e.store.byPlayer(c.playerID); s != nil {
		s.handleDisconnect(c)
	}

	logf(e.cfg, "SERVE: %q disconnected, idle for %s, %d client(s) online",
		c.playerID, c.idleFor().Round(time.Millisecond), e.registry.count())
}

func (e *Engine) handleReconnect(c *Client, sessionID, oldPlayerID string) {
	s := e.store.bySession(sessionID)
	if s == nil {
		c.trySend(ReconnectFailedMessage{
			Type:   "reconnect_failed",
			Reason: "session_not_found",
		})
		return
	}

	// Verify the claim before any side effect; a failed reconnect must
	// leave the caller's identity and the victim's socket untouched.
	if !s.hasPlayer(oldPlayerID) {
		c.trySend(ReconnectFailedMessage{
			Type:   "reconnect_failed",
			Reason: errorCode(ErrNotInSession),
		})
		return
	}

	e.registry.rebind(c, oldPlayerID)
	c.playerID = oldPlayerID

	if err := s.reattach(c, oldPlayerID); err != nil {
		c.trySend(ReconnectFailedMessage{
			Type:   "reconnect_failed",
			Reason: errorCode(err),
		})
		return
	}

	logf(e.cfg, "GAME: %q reconnected to session %s", oldPlayerID, sessionID)
}

// graceExpired fires when a disconnected player's window runs out; the
// session settles from whatever was submitted before the drop.
func (e *Engine) graceExpired(rec *disconnectRecord) {
	s := e.store.bySession(rec.sessionID)
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.phase == phaseFinished {
		s.mu.Unlock()
		return
	}
	if _, slot := s.slotOfLocked(rec.playerID); slot != nil && slot.connected {
		// Reconnected in the window between timer fire and this lock.
		s.mu.Unlock()
		return
	}

	logf(e.cfg, "GAME: grace period expired for %q after %s offline, finishing session %s",
		rec.playerID, time.Since(rec.droppedAt).Round(time.Millisecond), s.id)
	plan := s.finishLocked()
	s.mu.Unlock()
	e.completeSettlement(s, plan)
}

// expireSession is the reaper entry point: pre-play sessions are torn
// down with refunds, anything later settles normally.
func (e *Engine) expireSession(s *Session) {
	s.mu.Lock()
	switch s.phase {
	case phaseFinished:
		s.mu.Unlock()
		e.store.remove(s)

	case phaseWager, phaseReady:
		plan := s.teardownLocked(0, "session_expired")
		s.mu.Unlock()
		e.completeTeardown(s, plan)

	default:
		plan := s.finishLocked()
		s.mu.Unlock()
		e.completeSettlement(s, plan)
	}
}

// =============================================================================
// SETTLEMENT COMPLETION
// =============================================================================

// completeSettlement applies a finish plan after the session lock has
// been released: escrow credits, leaderboard rows, then teardown of
// all routing state.
func (e *Engine) completeSettlement(s *Session, plan settlementPlan) {
	applyMoves(e.cfg, e.inventory, plan.moves)
	recordResults(e.cfg, e.leaderboard, plan.records)

	e.reconnects.drop(s.id)
	e.store.remove(s)
}

// completeTeardown applies a pre-play teardown plan: refunds only, no
// leaderboard rows.
func (e *Engine) completeTeardown(s *Session, plan settlementPlan) {
	applyMoves(e.cfg, e.inventory, plan.moves)

	e.reconnects.drop(s.id)
	e.store.remove(s)
}
