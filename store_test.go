package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id, playerA, playerB string) *Session {
	return &Session{
		id: id,
		slots: [2]*playerSlot{
			{playerID: playerA, wager: WagerMap{}},
			{playerID: playerB, wager: WagerMap{}},
		},
	}
}

func TestSessionStoreRouting(t *testing.T) {
	st := newSessionStore()
	s := testSession("s1", "p1", "p2")

	require.NoError(t, st.add(s))

	assert.Same(t, s, st.bySession("s1"))
	assert.Same(t, s, st.byPlayer("p1"))
	assert.Same(t, s, st.byPlayer("p2"))
	assert.Nil(t, st.byPlayer("p3"))
	assert.Equal(t, 1, st.count())
}

func TestSessionStoreRejectsBusyPlayer(t *testing.T) {
	st := newSessionStore()

	require.NoError(t, st.add(testSession("s1", "p1", "p2")))

	err := st.add(testSession("s2", "p2", "p3"))
	assert.ErrorIs(t, err, ErrAlreadyInSession)
	assert.Nil(t, st.bySession("s2"))
}

func TestSessionStoreRemoveKeepsFreshRoutes(t *testing.T) {
	st := newSessionStore()
	old := testSession("s1", "p1", "p2")

	require.NoError(t, st.add(old))
	st.remove(old)

	// p1 joins a new session; removing the old one again must not
	// disturb the fresh route.
	fresh := testSession("s2", "p1", "p3")
	require.NoError(t, st.add(fresh))
	st.remove(old)

	assert.Same(t, fresh, st.byPlayer("p1"))
	assert.Equal(t, 1, st.count())
}
