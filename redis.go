package main

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey  = "wordduel:leaderboard"
	playerStatsKey  = "wordduel:player:"
	leaderboardSize = 10
)

// RedisLeaderboard keeps a global sorted set of cumulative scores plus
// a per-player stats hash.
type RedisLeaderboard struct {
	rdb *redis.Client
}

func NewRedisLeaderboard(ctx context.Context, url string) (*RedisLeaderboard, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisLeaderboard{rdb: rdb}, nil
}

func (l *RedisLeaderboard) Close() error {
	return l.rdb.Close()
}

func (l *RedisLeaderboard) RecordResult(ctx context.Context, rec MatchRecord) error {
	pipe := l.rdb.TxPipeline()

	pipe.ZIncrBy(ctx, leaderboardKey, float64(rec.Score), rec.Player)

	key := playerStatsKey + rec.Player
	pipe.HIncrBy(ctx, key, "matches", 1)
	pipe.HIncrBy(ctx, key, "total_score", int64(rec.Score))
	pipe.HIncrBy(ctx, key, "total_words", int64(rec.WordCount))
	if rec.Won {
		pipe.HIncrBy(ctx, key, "wins", 1)
	}
	if rec.LongestWord != "" {
		pipe.HSet(ctx, key, "last_longest_word", rec.LongestWord)
	}
	pipe.HSet(ctx, key, "last_grid", rec.GridMeta)

	_, err := pipe.Exec(ctx)

	return err
}

// Top returns the highest cumulative scorers, best first.
func (l *RedisLeaderboard) Top(ctx context.Context, n int) (map[string]int, error) {
	if n <= 0 {
		n = leaderboardSize
	}

	entries, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	top := make(map[string]int, len(entries))
	for _, entry := range entries {
		player, ok := entry.Member.(string)
		if !ok {
			player = strconv.Quote("?")
		}
		top[player] = int(entry.Score)
	}

	return top, nil
}
