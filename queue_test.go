package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePairsOldestFirst(t *testing.T) {
	q := newMatchQueue()

	first := newClient(nil, "p1", "one")
	second := newClient(nil, "p2", "two")
	third := newClient(nil, "p3", "three")

	partner, _, err := q.enqueue(first, modeCasual)
	require.NoError(t, err)
	assert.Nil(t, partner)

	time.Sleep(5 * time.Millisecond)

	partner, waited, err := q.enqueue(second, modeCasual)
	require.NoError(t, err)
	require.NotNil(t, partner)
	assert.Equal(t, "p1", partner.playerID)
	assert.Positive(t, waited, "the waiter's queue time is reported")

	partner, _, err = q.enqueue(third, modeCasual)
	require.NoError(t, err)
	assert.Nil(t, partner, "queue drained by the previous pairing")
}

func TestQueueModesAreIndependent(t *testing.T) {
	q := newMatchQueue()

	casual := newClient(nil, "p1", "one")
	wagered := newClient(nil, "p2", "two")

	partner, _, err := q.enqueue(casual, modeCasual)
	require.NoError(t, err)
	assert.Nil(t, partner)

	partner, _, err = q.enqueue(wagered, modeWagered)
	require.NoError(t, err)
	assert.Nil(t, partner, "a wagered seeker never pairs with a casual waiter")

	c, w := q.waiting()
	assert.Equal(t, 1, c)
	assert.Equal(t, 1, w)
}

func TestQueueRejectsDoubleEnqueue(t *testing.T) {
	q := newMatchQueue()
	c := newClient(nil, "p1", "one")

	_, _, err := q.enqueue(c, modeCasual)
	require.NoError(t, err)

	_, _, err = q.enqueue(c, modeWagered)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestQueueCancelIsIdempotent(t *testing.T) {
	q := newMatchQueue()
	c := newClient(nil, "p1", "one")

	_, _, err := q.enqueue(c, modeWagered)
	require.NoError(t, err)

	assert.True(t, q.cancel("p1"))
	assert.False(t, q.cancel("p1"))
	assert.False(t, q.cancel("never-queued"))

	casual, wagered := q.waiting()
	assert.Zero(t, casual)
	assert.Zero(t, wagered)
}
