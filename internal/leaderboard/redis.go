package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/models"
)

const defaultKey = "leaderboard:xp"

// RedisBoard keeps a sorted set of user id to total XP. Scores are set, not
// incremented, so replaying an update is harmless.
type RedisBoard struct {
	rdb *redis.Client
	key string
	sql *SQLBoard
	log *logger.Logger
}

// NewRedisBoard connects to addr and verifies it answers.
func NewRedisBoard(ctx context.Context, addr string, sql *SQLBoard, log *logger.Logger) (*RedisBoard, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBoard{rdb: rdb, key: defaultKey, sql: sql, log: log.With("component", "leaderboard")}, nil
}

func (b *RedisBoard) Close() error {
	return b.rdb.Close()
}

// Update raises the user's score to totalXP. A lower total never replaces a
// higher one, so updates published out of commit order are harmless.
func (b *RedisBoard) Update(ctx context.Context, userID int64, totalXP int64) error {
	err := b.rdb.ZAddGT(ctx, b.key, redis.Z{
		Score:  float64(totalXP),
		Member: strconv.FormatInt(userID, 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd gt: %w", err)
	}
	return nil
}

func (b *RedisBoard) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	zs, err := b.rdb.ZRevRangeWithScores(ctx, b.key, 0, int64(limit-1)).Result()
	if err != nil {
		b.log.Warn("redis leaderboard unavailable, using sql", "error", err)
		return b.sql.Top(ctx, limit)
	}

	ids := make([]int64, 0, len(zs))
	for _, z := range zs {
		id, err := strconv.ParseInt(fmt.Sprint(z.Member), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	details, err := b.sql.details(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		id, err := strconv.ParseInt(fmt.Sprint(z.Member), 10, 64)
		if err != nil {
			continue
		}
		r, ok := details[id]
		if !ok {
			continue
		}
		r.TotalXP = int64(z.Score)
		entries = append(entries, toEntry(len(entries)+1, r))
	}
	return entries, nil
}

// Rebuild replaces the sorted set with the totals in the database.
func (b *RedisBoard) Rebuild(ctx context.Context) error {
	rows, err := b.sql.totals(ctx)
	if err != nil {
		return err
	}

	pipe := b.rdb.TxPipeline()
	pipe.Del(ctx, b.key)
	for _, r := range rows {
		pipe.ZAdd(ctx, b.key, redis.Z{Score: float64(r.TotalXP), Member: strconv.FormatInt(r.UserID, 10)})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}
	b.log.Info("leaderboard rebuilt", "users", len(rows))
	return nil
}
