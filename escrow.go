package main

import (
	"context"
	"time"
)

// WagerMap counts items staked per item kind. An all-zero (or empty)
// map is a legal wager of nothing.
type WagerMap map[string]int

func (w WagerMap) total() int {
	sum := 0
	for _, n := range w {
		sum += n
	}
	return sum
}

func (w WagerMap) empty() bool {
	return w.total() == 0
}

func (w WagerMap) valid() bool {
	for _, n := range w {
		if n < 0 {
			return false
		}
	}
	return true
}

func (w WagerMap) clone() WagerMap {
	out := make(WagerMap, len(w))
	for k, n := range w {
		if n != 0 {
			out[k] = n
		}
	}
	return out
}

// plus returns the per-item-kind sum of two wager maps.
func (w WagerMap) plus(other WagerMap) WagerMap {
	out := w.clone()
	for k, n := range other {
		if n != 0 {
			out[k] += n
		}
	}
	return out
}

// InventoryStore is the narrow port onto the external item inventory.
// Debit fails with ErrInsufficientItems when any count exceeds the
// player's current holdings, in which case nothing is removed.
type InventoryStore interface {
	Debit(ctx context.Context, player string, items WagerMap) error
	Credit(ctx context.Context, player string, items WagerMap) error
}

// MatchRecord is one player's row written to the leaderboard store
// after a settled match.
type MatchRecord struct {
	Player      string
	Score       int
	WordCount   int
	LongestWord string
	GridMeta    string
	Won         bool
}

// LeaderboardStore is the narrow port onto the external leaderboard.
type LeaderboardStore interface {
	RecordResult(ctx context.Context, rec MatchRecord) error
}

// escrowMove is a single pending credit, produced under the session
// lock and applied after it is released.
type escrowMove struct {
	player string
	items  WagerMap
}

const storeTimeout = 5 * time.Second

func contextWithStoreTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// applyMoves credits each pending move against the inventory store.
// Credits are best-effort once the session has settled; failures are
// logged and never retried into a double payout.
func applyMoves(cfg *Config, inventory InventoryStore, moves []escrowMove) {
	for _, m := range moves {
		if m.items.empty() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		err := inventory.Credit(ctx, m.player, m.items)
		cancel()

		if err != nil {
			logf(cfg, "SETTLE: credit of %v to %q failed: %v", m.items, m.player, err)
			continue
		}
		logf(cfg, "SETTLE: credited %v to %q", m.items, m.player)
	}
}

// recordResults writes both players' rows to the leaderboard store.
func recordResults(cfg *Config, leaderboard LeaderboardStore, records []MatchRecord) {
	for _, rec := range records {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		err := leaderboard.RecordResult(ctx, rec)
		cancel()

		if err != nil {
			logf(cfg, "SETTLE: leaderboard write for %q failed: %v", rec.Player, err)
		}
	}
}
