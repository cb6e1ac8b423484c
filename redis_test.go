package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisLeaderboardBadURL(t *testing.T) {
	_, err := NewRedisLeaderboard(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}
