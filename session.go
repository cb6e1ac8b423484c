package main

import (
	"sync"
	"time"
)

type gamePhase string

const (
	phaseWager     gamePhase = "wager"
	phaseReady     gamePhase = "ready"
	phaseCountdown gamePhase = "countdown"
	phaseActive    gamePhase = "active"
	phasePaused    gamePhase = "paused"
	phaseFinished  gamePhase = "finished"
)

// playerSlot is one of a session's two sides.
type playerSlot struct {
	playerID  string
	name      string
	client    *Client // nil while disconnected
	connected bool

	words      []string // nil until submitted; submission is final
	wager      WagerMap
	confirmed  bool
	confirming bool
	ready      bool
}

// Session is one head-to-head timed round. All mutable state is
// guarded by mu; helpers suffixed Locked assume it is held. Timers are
// cancellable handles paired with a generation counter, so a callback
// scheduled by a superseded phase never fires into a newer one.
type Session struct {
	id      string
	wagered bool
	board   []string
	engine  *Engine

	mu    sync.RWMutex
	phase gamePhase
	slots [2]*playerSlot

	startedAt      time.Time
	endsAt         time.Time
	pauseRemaining time.Duration

	settled    bool
	timerGen   int
	roundTimer *time.Timer
	guardTimer *time.Timer

	lastActive time.Time
}

// settlementPlan is everything finish or teardown decided under the
// session lock, applied against the external stores after release.
type settlementPlan struct {
	moves   []escrowMove
	records []MatchRecord
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

func (s *Session) touchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastActive
}

func (s *Session) currentPhase() gamePhase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.phase
}

func (s *Session) hasPlayer(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, slot := s.slotOfLocked(playerID)
	return slot != nil
}

func (s *Session) slotOfLocked(playerID string) (int, *playerSlot) {
	for i, slot := range s.slots {
		if slot.playerID == playerID {
			return i, slot
		}
	}
	return -1, nil
}

func (s *Session) broadcastLocked(msg any) {
	for _, slot := range s.slots {
		if slot.connected && slot.client != nil {
			slot.client.trySend(msg)
		}
	}
}

func (s *Session) sendToLocked(idx int, msg any) {
	slot := s.slots[idx]
	if slot.connected && slot.client != nil {
		slot.client.trySend(msg)
	}
}

// =============================================================================
// WAGER PHASE
// =============================================================================

func (s *Session) handleUpdateWager(c *Client, wager WagerMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, slot := s.slotOfLocked(c.playerID)
	if slot == nil {
		return ErrNotInSession
	}
	if s.phase != phaseWager || slot.confirmed {
		return ErrWrongPhase
	}
	if !wager.valid() {
		return ErrBadWager
	}

	slot.wager = wager.clone()
	s.touchLocked()

	s.sendToLocked(1-idx, WagerUpdatedMessage{
		Type:  "wager_updated",
		Wager: slot.wager.clone(),
	})

	return nil
}

// handleConfirmWager validates the wager, debits the exact amount from
// the player's inventory, and marks the slot confirmed. The debit runs
// with the lock released; if the session moves on underneath it, the
// debit is credited straight back.
func (s *Session) handleConfirmWager(c *Client, wager WagerMap) error {
	s.mu.Lock()

	_, slot := s.slotOfLocked(c.playerID)
	if slot == nil {
		s.mu.Unlock()
		return ErrNotInSession
	}
	if s.phase != phaseWager || slot.confirmed || slot.confirming {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if !wager.valid() {
		s.mu.Unlock()
		return ErrBadWager
	}

	wager = wager.clone()
	slot.wager = wager
	slot.confirming = true
	playerID := slot.playerID
	s.touchLocked()
	s.mu.Unlock()

	ctx, cancel := contextWithStoreTimeout()
	err := s.engine.inventory.Debit(ctx, playerID, wager)
	cancel()

	s.mu.Lock()
	slot.confirming = false

	if err != nil {
		s.mu.Unlock()
		return err
	}

	if s.phase != phaseWager {
		// Torn down while the debit was in flight; hand it straight back.
		s.mu.Unlock()
		applyMoves(s.engine.cfg, s.engine.inventory, []escrowMove{{player: playerID, items: wager}})
		return ErrWrongPhase
	}

	slot.confirmed = true
	idx, _ := s.slotOfLocked(playerID)
	s.sendToLocked(1-idx, OpponentWagerConfirmedMessage{Type: "opponent_wager_confirmed"})
	logf(s.engine.cfg, "WAGER: %q locked %v in session %s", slot.name, wager, s.id)

	if s.slots[0].confirmed && s.slots[1].confirmed {
		s.phase = phaseReady
		for i := range s.slots {
			s.sendToLocked(i, WagersLockedMessage{
				Type:     "wagers_locked",
				MyWager:  s.slots[i].wager.clone(),
				OppWager: s.slots[1-i].wager.clone(),
			})
		}
	}

	s.mu.Unlock()
	return nil
}

// =============================================================================
// READY PHASE
// =============================================================================

func (s *Session) handlePlayerReady(c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, slot := s.slotOfLocked(c.playerID)
	if slot == nil {
		return ErrNotInSession
	}
	if s.phase != phaseReady {
		return ErrWrongPhase
	}
	if slot.ready {
		return nil
	}

	slot.ready = true
	s.touchLocked()
	s.sendToLocked(1-idx, OpponentReadyMessage{Type: "opponent_ready"})

	if s.slots[0].ready && s.slots[1].ready {
		s.broadcastLocked(BothReadyMessage{
			Type:      "both_ready",
			Countdown: s.engine.cfg.countdownTicks,
		})
		s.enterCountdownLocked(false)
	}

	return nil
}

// =============================================================================
// COUNTDOWN
// =============================================================================

// enterCountdownLocked starts the pre-round (or resume) countdown. The
// first countdown of a match also arms the stuck-match guard.
func (s *Session) enterCountdownLocked(resume bool) {
	s.phase = phaseCountdown
	s.timerGen++
	gen := s.timerGen
	s.touchLocked()

	if s.guardTimer == nil {
		guard := s.engine.cfg.roundLength + s.engine.cfg.matchGuardMargin
		s.guardTimer = time.AfterFunc(guard, s.guardExpired)
	}

	go s.runCountdown(gen, resume)
}

func (s *Session) runCountdown(gen int, resume bool) {
	for i := s.engine.cfg.countdownTicks; i > 0; i-- {
		s.mu.Lock()
		if s.phase != phaseCountdown || s.timerGen != gen {
			s.mu.Unlock()
			return
		}
		s.broadcastLocked(CountdownTickMessage{
			Type:    "countdown_tick",
			Seconds: i,
		})
		s.mu.Unlock()

		time.Sleep(s.engine.tick)
	}

	s.mu.Lock()
	if s.phase != phaseCountdown || s.timerGen != gen {
		s.mu.Unlock()
		return
	}
	s.enterActiveLocked(resume)
	s.mu.Unlock()
}

// =============================================================================
// ACTIVE PHASE
// =============================================================================

// enterActiveLocked starts or resumes play. A resume restores the
// exact remaining time captured at pause, never a fresh duration; a
// snapshot of zero means the clock ran out while paused, so the round
// settles instead of restarting.
func (s *Session) enterActiveLocked(resume bool) {
	duration := s.engine.cfg.roundLength
	if resume {
		duration = s.pauseRemaining
		if duration <= 0 {
			plan := s.finishLocked()
			go s.engine.completeSettlement(s, plan)
			return
		}
	}

	now := time.Now()
	if !resume {
		s.startedAt = now
	}
	s.endsAt = now.Add(duration)
	s.pauseRemaining = 0
	s.phase = phaseActive
	s.timerGen++
	gen := s.timerGen
	s.touchLocked()

	if s.roundTimer != nil {
		s.roundTimer.Stop()
	}
	s.roundTimer = time.AfterFunc(duration, func() {
		s.roundExpired(gen)
	})

	// Re-arm the guard for the remaining stretch of play, so a pause
	// and resume cannot trip it mid-round.
	if s.guardTimer != nil {
		s.guardTimer.Stop()
	}
	s.guardTimer = time.AfterFunc(duration+s.engine.cfg.matchGuardMargin, s.guardExpired)

	seconds := int(duration.Round(time.Second) / time.Second)
	if resume {
		s.broadcastLocked(GameResumedMessage{
			Type:          "game_resumed",
			TimeRemaining: seconds,
		})
		logf(s.engine.cfg, "GAME: session %s resumed with %s remaining", s.id, duration)
	} else {
		s.broadcastLocked(GameStartMessage{
			Type:     "game_start",
			Duration: seconds,
		})
		logf(s.engine.cfg, "GAME: session %s started, round length %s", s.id, duration)
	}
}

func (s *Session) handleSubmitWords(c *Client, words []string) error {
	s.mu.Lock()

	_, slot := s.slotOfLocked(c.playerID)
	if slot == nil {
		s.mu.Unlock()
		return ErrNotInSession
	}
	if s.phase != phaseActive {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if slot.words != nil {
		// Second submission is a no-op; the first stands.
		s.mu.Unlock()
		return nil
	}

	normalized := normalizeWords(words)
	accepted := make([]string, 0, len(normalized))
	for _, w := range normalized {
		if s.engine.dict.Valid(w) {
			accepted = append(accepted, w)
		}
	}
	slot.words = accepted
	s.touchLocked()
	logf(s.engine.cfg, "GAME: %q submitted %d words in session %s", slot.name, len(accepted), s.id)

	if s.slots[0].words != nil && s.slots[1].words != nil {
		plan := s.finishLocked()
		s.mu.Unlock()
		s.engine.completeSettlement(s, plan)
		return nil
	}

	s.mu.Unlock()
	return nil
}

func (s *Session) roundExpired(gen int) {
	s.mu.Lock()
	if s.phase != phaseActive || s.timerGen != gen {
		s.mu.Unlock()
		return
	}

	logf(s.engine.cfg, "GAME: session %s hit round end", s.id)
	plan := s.finishLocked()
	s.mu.Unlock()
	s.engine.completeSettlement(s, plan)
}

// guardExpired force-finishes a stuck match regardless of phase.
func (s *Session) guardExpired() {
	s.mu.Lock()
	if s.phase == phaseFinished {
		s.mu.Unlock()
		return
	}

	logf(s.engine.cfg, "GAME: session %s tripped the stuck-match guard in phase %s", s.id, s.phase)
	plan := s.finishLocked()
	s.mu.Unlock()
	s.engine.completeSettlement(s, plan)
}

// =============================================================================
// DISCONNECT AND PAUSE
// =============================================================================

// handleDisconnect reacts to a socket going away, whether by close or
// by a missed heartbeat. Before play starts, the session is torn down
// and any escrow refunded; during play, it pauses with a grace window.
func (s *Session) handleDisconnect(c *Client) {
	s.mu.Lock()

	idx, slot := s.slotOfLocked(c.playerID)
	if slot == nil || slot.client != c {
		// A stale socket for a slot that has since reconnected.
		s.mu.Unlock()
		return
	}

	slot.client = nil
	slot.connected = false
	s.touchLocked()

	switch s.phase {
	case phaseWager, phaseReady:
		plan := s.teardownLocked(idx, "opponent_disconnected")
		s.mu.Unlock()
		s.engine.completeTeardown(s, plan)

	case phaseCountdown, phaseActive:
		s.pauseLocked(idx)
		s.mu.Unlock()
		s.engine.reconnects.watch(s, slot.playerID)

	case phasePaused:
		// The other player is already gone; stay paused and give this
		// one their own grace window.
		s.mu.Unlock()
		s.engine.reconnects.watch(s, slot.playerID)

	default:
		s.mu.Unlock()
	}
}

// pauseLocked snapshots the remaining time and halts play. During the
// initial countdown nothing has elapsed yet, so the snapshot is the
// full round length.
func (s *Session) pauseLocked(idx int) {
	if s.phase == phaseActive {
		s.pauseRemaining = max(time.Until(s.endsAt), 0)
	} else {
		s.pauseRemaining = s.engine.cfg.roundLength
	}

	s.phase = phasePaused
	s.timerGen++
	if s.roundTimer != nil {
		s.roundTimer.Stop()
	}
	if s.guardTimer != nil {
		s.guardTimer.Stop()
	}

	grace := int(s.engine.cfg.gracePeriod.Round(time.Second) / time.Second)
	seconds := int(s.pauseRemaining.Round(time.Second) / time.Second)

	s.sendToLocked(1-idx, OpponentDisconnectedMessage{
		Type:               "opponent_disconnected",
		CanReconnect:       true,
		GracePeriodSeconds: grace,
	})
	s.sendToLocked(1-idx, GamePausedMessage{
		Type:          "game_paused",
		Reason:        "opponent_disconnected",
		TimeRemaining: seconds,
	})

	logf(s.engine.cfg, "GAME: session %s paused with %s remaining, %q has %s to return",
		s.id, s.pauseRemaining, s.slots[idx].name, s.engine.cfg.gracePeriod)
}

// reattach binds a fresh socket to a disconnected slot and, once both
// sides are connected again, drives the resume countdown.
func (s *Session) reattach(c *Client, oldPlayerID string) error {
	s.mu.Lock()

	idx, slot := s.slotOfLocked(oldPlayerID)
	if slot == nil {
		s.mu.Unlock()
		return ErrNotInSession
	}

	s.engine.reconnects.cancel(oldPlayerID)

	if old := slot.client; old != nil && old != c {
		old.shutdown()
	}
	slot.client = c
	slot.connected = true
	s.touchLocked()

	remaining := s.remainingLocked()
	paused := s.phase == phasePaused
	seconds := int(remaining.Round(time.Second) / time.Second)

	words := make([]string, len(slot.words))
	copy(words, slot.words)

	c.trySend(ReconnectSuccessMessage{
		Type:          "reconnect_success",
		SessionID:     s.id,
		Board:         s.board,
		TimeRemaining: seconds,
		Opponent:      s.slots[1-idx].name,
		Paused:        paused,
		Words:         words,
	})
	s.sendToLocked(1-idx, OpponentReconnectedMessage{Type: "opponent_reconnected"})

	if paused && s.slots[0].connected && s.slots[1].connected {
		s.broadcastLocked(GameResumingMessage{
			Type:          "game_resuming",
			Countdown:     s.engine.cfg.countdownTicks,
			TimeRemaining: seconds,
		})
		s.enterCountdownLocked(true)
	}

	s.mu.Unlock()
	return nil
}

// remainingLocked reports play time left: the pause snapshot while
// paused, otherwise the live end timestamp.
func (s *Session) remainingLocked() time.Duration {
	switch s.phase {
	case phasePaused:
		return s.pauseRemaining
	case phaseActive:
		return max(time.Until(s.endsAt), 0)
	case phaseFinished:
		return 0
	default:
		return s.engine.cfg.roundLength
	}
}

// =============================================================================
// TEARDOWN AND SETTLEMENT
// =============================================================================

// handleLeave covers leave_wager and cancel_ready: an explicit exit
// before play starts. Confirmed wagers go back to their owners.
func (s *Session) handleLeave(c *Client) error {
	s.mu.Lock()

	idx, slot := s.slotOfLocked(c.playerID)
	if slot == nil {
		s.mu.Unlock()
		return ErrNotInSession
	}
	if s.phase != phaseWager && s.phase != phaseReady {
		s.mu.Unlock()
		return ErrWrongPhase
	}

	plan := s.teardownLocked(idx, "opponent_left")
	s.mu.Unlock()
	s.engine.completeTeardown(s, plan)

	return nil
}

// teardownLocked ends a session that never reached play. Each
// confirmed wager is refunded to its own player; stakes never cross
// hands on this path.
func (s *Session) teardownLocked(leavingIdx int, reason string) settlementPlan {
	plan := settlementPlan{}

	if !s.settled {
		s.settled = true
		for _, slot := range s.slots {
			if slot.confirmed && !slot.wager.empty() {
				plan.moves = append(plan.moves, escrowMove{
					player: slot.playerID,
					items:  slot.wager.clone(),
				})
			}
		}
	}

	wasWager := s.phase == phaseWager
	s.phase = phaseFinished
	s.timerGen++
	if s.roundTimer != nil {
		s.roundTimer.Stop()
	}
	if s.guardTimer != nil {
		s.guardTimer.Stop()
	}

	if wasWager {
		s.sendToLocked(1-leavingIdx, OpponentCancelledWagerMessage{Type: "opponent_cancelled_wager"})
	}
	s.sendToLocked(1-leavingIdx, OpponentLeftMessage{
		Type:   "opponent_left",
		Reason: reason,
	})

	logf(s.engine.cfg, "GAME: session %s torn down (%s), %d refund(s)", s.id, reason, len(plan.moves))

	return plan
}

// finishLocked is the single settlement transition: score whatever was
// submitted (a missing side counts as an empty list), resolve the
// escrow exactly once, and emit game_end to both sides.
func (s *Session) finishLocked() settlementPlan {
	plan := settlementPlan{}

	s.phase = phaseFinished
	s.timerGen++
	if s.roundTimer != nil {
		s.roundTimer.Stop()
	}
	if s.guardTimer != nil {
		s.guardTimer.Stop()
	}

	var lists [2][]string
	for i, slot := range s.slots {
		lists[i] = slot.words
		if lists[i] == nil {
			lists[i] = []string{}
		}
	}

	var results [2]ScoredResult
	results[0], results[1] = score(lists[0], lists[1])

	winner := -1
	switch {
	case results[0].Total > results[1].Total:
		winner = 0
	case results[1].Total > results[0].Total:
		winner = 1
	}

	var outcome *WagerOutcome
	if !s.settled {
		s.settled = true

		var stakes [2]WagerMap
		for i, slot := range s.slots {
			if slot.confirmed {
				stakes[i] = slot.wager.clone()
			} else {
				stakes[i] = WagerMap{}
			}
		}
		pot := stakes[0].plus(stakes[1])

		if !pot.empty() {
			if winner >= 0 {
				plan.moves = append(plan.moves, escrowMove{
					player: s.slots[winner].playerID,
					items:  pot,
				})
				outcome = &WagerOutcome{
					Winner: s.slots[winner].name,
					Pot:    pot,
				}
			} else {
				for i, slot := range s.slots {
					if !stakes[i].empty() {
						plan.moves = append(plan.moves, escrowMove{
							player: slot.playerID,
							items:  stakes[i],
						})
					}
				}
				outcome = &WagerOutcome{
					Pot:      pot,
					Returned: true,
				}
			}
		}
	}

	meta := gridMeta(s.board)
	for i, slot := range s.slots {
		plan.records = append(plan.records, MatchRecord{
			Player:      slot.playerID,
			Score:       results[i].Total,
			WordCount:   len(lists[i]),
			LongestWord: results[i].LongestWord,
			GridMeta:    meta,
			Won:         winner == i,
		})
	}

	winnerName := ""
	if winner >= 0 {
		winnerName = s.slots[winner].name
	}
	shared := sharedWords(results[0])

	for i := range s.slots {
		s.sendToLocked(i, GameEndMessage{
			Type:        "game_end",
			Winner:      winnerName,
			SharedWords: shared,
			You: PlayerResult{
				Words:     results[i].Words,
				Score:     results[i].Total,
				WordCount: len(lists[i]),
			},
			Opponent: PlayerResult{
				Words:     results[1-i].Words,
				Score:     results[1-i].Total,
				WordCount: len(lists[1-i]),
			},
			WagerResult: outcome,
		})
	}

	played := "none"
	if !s.startedAt.IsZero() {
		played = time.Since(s.startedAt).Round(time.Millisecond).String()
	}
	logf(s.engine.cfg, "GAME: session %s finished (play time %s), scores %d-%d, winner %q",
		s.id, played, results[0].Total, results[1].Total, winnerName)

	return plan
}
