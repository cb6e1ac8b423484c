package main

import (
	"sync"
	"time"
)

const (
	modeCasual  = "casual"
	modeWagered = "wagered"
)

type queueEntry struct {
	client   *Client
	enqueued time.Time
}

// MatchQueue holds two independent FIFO queues, one per mode. Pairing
// is strictly oldest-waiter-first; there is no skill matching.
type MatchQueue struct {
	mu      sync.Mutex
	casual  []queueEntry
	wagered []queueEntry
}

func newMatchQueue() *MatchQueue {
	return &MatchQueue{}
}

func (q *MatchQueue) queueFor(mode string) *[]queueEntry {
	if mode == modeWagered {
		return &q.wagered
	}
	return &q.casual
}

// enqueue either pairs the caller with the head of the target queue
// (returning the waiting client and how long they waited) or appends
// them and returns nil.
func (q *MatchQueue) enqueue(c *Client, mode string) (*Client, time.Duration, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.containsLocked(c.playerID) {
		return nil, 0, ErrAlreadyQueued
	}

	target := q.queueFor(mode)
	if len(*target) > 0 {
		head := (*target)[0]
		*target = (*target)[1:]
		return head.client, time.Since(head.enqueued), nil
	}

	*target = append(*target, queueEntry{
		client:   c,
		enqueued: time.Now(),
	})

	return nil, 0, nil
}

// cancel removes the player from whichever queue holds them. Calling
// it for an absent player is a no-op.
func (q *MatchQueue) cancel(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := false
	for _, target := range []*[]queueEntry{&q.casual, &q.wagered} {
		dst := (*target)[:0]
		for _, entry := range *target {
			if entry.client.playerID == playerID {
				removed = true
				continue
			}
			dst = append(dst, entry)
		}
		*target = dst
	}

	return removed
}

func (q *MatchQueue) containsLocked(playerID string) bool {
	for _, entry := range q.casual {
		if entry.client.playerID == playerID {
			return true
		}
	}
	for _, entry := range q.wagered {
		if entry.client.playerID == playerID {
			return true
		}
	}
	return false
}

func (q *MatchQueue) waiting() (casual, wagered int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.casual), len(q.wagered)
}
