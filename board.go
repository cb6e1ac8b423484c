package main

import (
	"crypto/rand"
	"strings"
)

const boardSize = 16

// The sixteen classic letter dice. The Q die carries "Qu" as a single
// face so boards always stay playable.
var letterDice = [boardSize]string{
	"AAEEGN",
	"ABBJOO",
	"ACHOPS",
	"AFFKPS",
	"AOOTTW",
	"CIMOTU",
	"DEILRX",
	"DELRVY",
	"DISTTY",
	"EEGHNW",
	"EEINSU",
	"EHRTVW",
	"EIOSST",
	"ELRTTY",
	"HIMNQU",
	"HLNNRZ",
}

// randomInt returns a uniform value in [0, n). Bytes that would bias
// the modulo are rejected and redrawn.
func randomInt(n int) int {
	max := byte(255 - (256 % n))

	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		if b[0] <= max {
			return int(b[0]) % n
		}
	}
}

// newBoard rolls and shuffles the dice into a 4x4 grid, returned in
// row-major order.
func newBoard() []string {
	order := make([]int, boardSize)
	for i := range order {
		order[i] = i
	}

	// Fisher-Yates shuffle using crypto/rand
	for i := len(order) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	board := make([]string, 0, boardSize)
	for _, die := range order {
		faces := letterDice[die]
		face := string(faces[randomInt(len(faces))])
		if face == "Q" {
			face = "QU"
		}
		board = append(board, face)
	}

	return board
}

// gridMeta flattens a board into the single string recorded alongside
// leaderboard entries.
func gridMeta(board []string) string {
	return strings.Join(board, "")
}
