// Package leaderboard ranks users by total XP.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/models"
)

// Board is a ranking read model. Update is called after a commit with the
// user's new total and must be safe to repeat.
type Board interface {
	Update(ctx context.Context, userID int64, totalXP int64) error
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// SQLBoard ranks straight from user_progress. Update is a no-op because the
// table is already current at commit.
type SQLBoard struct {
	db *sqlx.DB
}

func NewSQLBoard(db *sqlx.DB) *SQLBoard {
	return &SQLBoard{db: db}
}

func (b *SQLBoard) Update(ctx context.Context, userID int64, totalXP int64) error {
	return nil
}

type row struct {
	UserID        int64  `db:"user_id"`
	Name          string `db:"name"`
	TotalXP       int64  `db:"total_xp"`
	CurrentStreak int    `db:"current_streak"`
}

func (b *SQLBoard) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var rows []row
	err := b.db.SelectContext(ctx, &rows, b.db.Rebind(
		`SELECT up.user_id, u.name, up.total_xp, up.current_streak
		 FROM user_progress up
		 JOIN users u ON u.id = up.user_id
		 WHERE up.total_xp > 0
		 ORDER BY up.total_xp DESC, up.user_id
		 LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, toEntry(i+1, r))
	}
	return entries, nil
}

// details loads names and streaks for the given users.
func (b *SQLBoard) details(ctx context.Context, userIDs []int64) (map[int64]row, error) {
	out := make(map[int64]row, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(
		`SELECT u.id AS user_id, u.name,
		        COALESCE(up.total_xp, 0) AS total_xp,
		        COALESCE(up.current_streak, 0) AS current_streak
		 FROM users u
		 LEFT JOIN user_progress up ON up.user_id = u.id
		 WHERE u.id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("build leaderboard query: %w", err)
	}
	var rows []row
	if err := b.db.SelectContext(ctx, &rows, b.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get leaderboard users: %w", err)
	}
	for _, r := range rows {
		out[r.UserID] = r
	}
	return out, nil
}

// totals returns every user with XP, for rebuilding a cache.
func (b *SQLBoard) totals(ctx context.Context) ([]row, error) {
	var rows []row
	err := b.db.SelectContext(ctx, &rows,
		`SELECT up.user_id, '' AS name, up.total_xp, up.current_streak
		 FROM user_progress up WHERE up.total_xp > 0`)
	if err != nil {
		return nil, fmt.Errorf("list xp totals: %w", err)
	}
	return rows, nil
}

func toEntry(rank int, r row) models.LeaderboardEntry {
	return models.LeaderboardEntry{
		Rank:          rank,
		UserID:        r.UserID,
		DisplayName:   models.DisplayName(r.Name),
		TotalXP:       r.TotalXP,
		Level:         gamification.Level(r.TotalXP),
		CurrentStreak: r.CurrentStreak,
	}
}
