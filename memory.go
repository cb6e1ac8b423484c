package main

import (
	"context"
	"sort"
	"sync"
)

// MemoryInventory keeps per-player item holdings in process, used when
// no database url is configured.
type MemoryInventory struct {
	mu       sync.Mutex
	holdings map[string]WagerMap
}

func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{
		holdings: make(map[string]WagerMap),
	}
}

// Grant seeds a player's holdings, mainly for standalone deployments
// and tests.
func (m *MemoryInventory) Grant(player string, items WagerMap) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.holdings[player] = m.holdings[player].plus(items)
}

// Holdings returns a copy of a player's current items.
func (m *MemoryInventory) Holdings(player string) WagerMap {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.holdings[player].clone()
}

func (m *MemoryInventory) Debit(_ context.Context, player string, items WagerMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.holdings[player]
	for kind, n := range items {
		if n > held[kind] {
			return ErrInsufficientItems
		}
	}

	next := held.clone()
	for kind, n := range items {
		next[kind] -= n
		if next[kind] == 0 {
			delete(next, kind)
		}
	}
	m.holdings[player] = next

	return nil
}

func (m *MemoryInventory) Credit(_ context.Context, player string, items WagerMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.holdings[player] = m.holdings[player].plus(items)

	return nil
}

// MemoryLeaderboard aggregates raw match results in process.
type MemoryLeaderboard struct {
	mu      sync.Mutex
	records []MatchRecord
}

func NewMemoryLeaderboard() *MemoryLeaderboard {
	return &MemoryLeaderboard{}
}

func (m *MemoryLeaderboard) RecordResult(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)

	return nil
}

// Top aggregates cumulative scores per player and returns the n best.
func (m *MemoryLeaderboard) Top(_ context.Context, n int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	totals := make(map[string]int)
	for _, rec := range m.records {
		totals[rec.Player] += rec.Score
	}

	players := make([]string, 0, len(totals))
	for p := range totals {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if totals[players[i]] != totals[players[j]] {
			return totals[players[i]] > totals[players[j]]
		}
		return players[i] < players[j]
	})
	if n > 0 && len(players) > n {
		players = players[:n]
	}

	out := make(map[string]int, len(players))
	for _, p := range players {
		out[p] = totals[p]
	}

	return out, nil
}

// Records returns a copy of everything recorded so far.
func (m *MemoryLeaderboard) Records() []MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MatchRecord, len(m.records))
	copy(out, m.records)

	return out
}
