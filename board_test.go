package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoardShape(t *testing.T) {
	for range 32 {
		board := newBoard()
		require.Len(t, board, boardSize)

		for _, tile := range board {
			if tile == "QU" {
				continue
			}
			assert.Len(t, tile, 1, "tile %q", tile)
			assert.Equal(t, strings.ToUpper(tile), tile)
		}
	}
}

func TestNewBoardNeverBareQ(t *testing.T) {
	for range 64 {
		for _, tile := range newBoard() {
			assert.NotEqual(t, "Q", tile)
		}
	}
}

func TestRandomIntStaysInRange(t *testing.T) {
	for _, n := range []int{1, 2, 6, 16} {
		for range 256 {
			v := randomInt(n)
			assert.GreaterOrEqual(t, v, 0)
			assert.Less(t, v, n)
		}
	}
}

func TestGridMeta(t *testing.T) {
	assert.Equal(t, "ABQUC", gridMeta([]string{"A", "B", "QU", "C"}))
}
