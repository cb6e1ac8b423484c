package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindGameRejectsBusyPlayers(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())

	a, _, _ := startCasualMatch(t, e)

	assert.ErrorIs(t, e.handleFindGame(a, modeCasual), ErrAlreadyInSession)

	waiting := newClient(nil, "pc", "Carol")
	require.NoError(t, e.handleFindGame(waiting, modeCasual))
	assert.ErrorIs(t, e.handleFindGame(waiting, modeWagered), ErrAlreadyQueued)
}

func TestFindGameRejectsUnknownMode(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())
	c := newClient(nil, "pa", "Alice")

	assert.Error(t, e.handleFindGame(c, "ranked"))

	casual, wagered := e.queue.waiting()
	assert.Zero(t, casual)
	assert.Zero(t, wagered)
}

func TestDispatchCancelSearch(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())
	c := newClient(nil, "pa", "Alice")

	require.NoError(t, e.handleFindGame(c, modeCasual))
	e.dispatch(c, ClientMessage{Type: "cancel_search"})

	lastMessage[SearchCancelledMessage](t, c)

	casual, _ := e.queue.waiting()
	assert.Zero(t, casual)
}

func TestDispatchReportsErrorsToSender(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())
	c := newClient(nil, "pa", "Alice")

	e.dispatch(c, ClientMessage{Type: "submit_words", Words: []string{"CAT"}})

	errMsg := lastMessage[ErrorMessage](t, c)
	assert.Equal(t, "session_not_found", errMsg.Code)
}

func TestDispatchDropsUnknownTypes(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())
	c := newClient(nil, "pa", "Alice")

	e.dispatch(c, ClientMessage{Type: "warp_drive"})

	assert.Empty(t, drainMessages(c), "unknown types are dropped without a reply")
}

func TestReconnectUnknownSession(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())
	c := newClient(nil, "fresh", "Bob")

	e.handleReconnect(c, "no-such-session", "pb")

	failed := lastMessage[ReconnectFailedMessage](t, c)
	assert.Equal(t, "session_not_found", failed.Reason)
}

func TestReconnectUnknownPlayer(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())

	_, _, s := startCasualMatch(t, e)

	c := newClient(nil, "fresh", "Mallory")
	e.handleReconnect(c, s.id, "not-a-member")

	failed := lastMessage[ReconnectFailedMessage](t, c)
	assert.Equal(t, "not_in_session", failed.Reason)
}

func TestFailedReconnectLeavesIdentityAlone(t *testing.T) {
	e := newTestEngine(NewMemoryInventory(), NewMemoryLeaderboard())

	_, _, s1 := startCasualMatch(t, e)

	carol := newClient(nil, "pc", "Carol")
	dan := newClient(nil, "pd", "Dan")
	require.NoError(t, e.handleFindGame(carol, modeCasual))
	require.NoError(t, e.handleFindGame(dan, modeCasual))
	s2 := e.store.byPlayer("pc")
	require.NotNil(t, s2)
	waitPhase(t, s2, phaseActive)
	e.registry.add(carol)

	// Claim Carol's id against a session she is not part of.
	mal := newClient(nil, "mal", "Mallory")
	e.handleReconnect(mal, s1.id, "pc")

	failed := lastMessage[ReconnectFailedMessage](t, mal)
	assert.Equal(t, "not_in_session", failed.Reason)

	assert.Equal(t, "mal", mal.playerID, "a rejected claim never changes the caller's identity")
	assert.True(t, carol.trySend(OpponentReadyMessage{}), "the claimed player's socket stays open")

	// Whatever the claimant sends next routes nowhere near Carol's game.
	e.dispatch(mal, ClientMessage{Type: "submit_words", Words: []string{"ELEPHANT"}})
	errMsg := lastMessage[ErrorMessage](t, mal)
	assert.Equal(t, "session_not_found", errMsg.Code)

	s2.mu.RLock()
	_, slot := s2.slotOfLocked("pc")
	words := slot.words
	s2.mu.RUnlock()
	assert.Nil(t, words, "no submission leaked into the victim's slot")
}

func TestExpireSessionRefundsPrePlay(t *testing.T) {
	inv := NewMemoryInventory()
	inv.Grant("pa", WagerMap{"gold": 3})
	lb := NewMemoryLeaderboard()
	e := newTestEngine(inv, lb)

	a, _, s := startWageredMatch(t, e)
	require.NoError(t, s.handleConfirmWager(a, WagerMap{"gold": 3}))

	e.expireSession(s)

	assert.Equal(t, WagerMap{"gold": 3}, inv.Holdings("pa"))
	assert.Nil(t, e.store.byPlayer("pa"))
	assert.Empty(t, lb.Records(), "a reaped pre-play session writes no results")
}

func TestExpireSessionSettlesActive(t *testing.T) {
	lb := NewMemoryLeaderboard()
	e := newTestEngine(NewMemoryInventory(), lb)

	a, _, s := startCasualMatch(t, e)
	require.NoError(t, s.handleSubmitWords(a, []string{"HOUSE"}))

	e.expireSession(s)

	assert.Nil(t, e.store.byPlayer("pa"))
	require.Len(t, lb.Records(), 2)

	end := lastMessage[GameEndMessage](t, a)
	assert.Equal(t, "Alice", end.Winner)
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "already_queued", errorCode(ErrAlreadyQueued))
	assert.Equal(t, "wrong_phase", errorCode(ErrWrongPhase))
	assert.Equal(t, "insufficient_items", errorCode(ErrInsufficientItems))
	assert.Equal(t, "internal_error", errorCode(assert.AnError))
}
