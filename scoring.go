package main

import (
	"sort"
	"strings"
)

// ScoredWord is one scored entry in a player's final word list. Shared
// words (present in both submissions) are always worth zero.
type ScoredWord struct {
	Word   string `json:"word"`
	Value  int    `json:"value"`
	Shared bool   `json:"shared"`
}

// ScoredResult is the full outcome for one player, derived purely from
// the two final word sets.
type ScoredResult struct {
	Words       []ScoredWord
	Total       int
	LongestWord string
}

const longWordBonus = 11

// wordValue looks up a word's point value by length. Lengths below
// three never score; eight letters and up earn a flat bonus.
func wordValue(word string) int {
	switch len(word) {
	case 0, 1, 2:
		return 0
	case 3, 4:
		return 1
	case 5:
		return 2
	case 6:
		return 3
	case 7:
		return 5
	default:
		return longWordBonus
	}
}

// normalizeWords uppercases, trims, and deduplicates a submission,
// preserving nothing of the original order.
func normalizeWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))

	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}

	return out
}

// score maps two normalized word lists to per-player results. Words in
// the intersection cancel to zero for both players; everything else is
// valued by length. Output lists are sorted by descending length, ties
// broken alphabetically.
func score(wordsA, wordsB []string) (ScoredResult, ScoredResult) {
	inA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		inA[w] = true
	}

	shared := make(map[string]bool)
	for _, w := range wordsB {
		if inA[w] {
			shared[w] = true
		}
	}

	return scoreOne(wordsA, shared), scoreOne(wordsB, shared)
}

func scoreOne(words []string, shared map[string]bool) ScoredResult {
	result := ScoredResult{
		Words: make([]ScoredWord, 0, len(words)),
	}

	for _, w := range words {
		entry := ScoredWord{
			Word:   w,
			Shared: shared[w],
		}
		if !entry.Shared {
			entry.Value = wordValue(w)
		}
		result.Total += entry.Value
		result.Words = append(result.Words, entry)

		if len(w) > len(result.LongestWord) ||
			(len(w) == len(result.LongestWord) && w < result.LongestWord) {
			result.LongestWord = w
		}
	}

	sort.Slice(result.Words, func(i, j int) bool {
		a, b := result.Words[i].Word, result.Words[j].Word
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	return result
}

// sharedWords lists the intersection of two results, sorted the same
// way as scored word lists.
func sharedWords(a ScoredResult) []string {
	out := make([]string, 0)
	for _, w := range a.Words {
		if w.Shared {
			out = append(out, w.Word)
		}
	}
	return out
}
