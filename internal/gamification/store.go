package gamification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/database"
	"github.com/tutorhub/backend/internal/models"
)

// Store reads and writes gamification rows. Every method takes the executor
// to run on so callers can group writes in one transaction.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

// ── User Progress ───────────────────────────────────────

const progressColumns = `user_id, total_xp, current_level, current_streak, longest_streak,
	last_activity_date, created_at, updated_at`

func (s *Store) UserExists(ctx context.Context, q sqlx.ExtContext, userID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM users WHERE id = ?`), userID)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CreateProgress(ctx context.Context, q sqlx.ExtContext, userID int64, now time.Time) error {
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO user_progress (user_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`),
		userID, now, now,
	)
	if err != nil {
		return fmt.Errorf("create user progress: %w", err)
	}
	return nil
}

// GetProgress returns the progress row, locking it on drivers that support
// row locks when lock is set. A missing row is sql.ErrNoRows.
func (s *Store) GetProgress(ctx context.Context, q sqlx.ExtContext, userID int64, lock bool) (*models.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = ?`
	if lock {
		query += database.ForUpdate(q)
	}
	var p models.UserProgress
	if err := sqlx.GetContext(ctx, q, &p, q.Rebind(query), userID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) AddXP(ctx context.Context, q sqlx.ExtContext, userID int64, amount int, level int, now time.Time) error {
	_, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE user_progress SET
		    total_xp = total_xp + ?,
		    current_level = ?,
		    updated_at = ?
		 WHERE user_id = ?`),
		amount, level, now, userID,
	)
	if err != nil {
		return fmt.Errorf("add xp: %w", err)
	}
	return nil
}

func (s *Store) UpdateStreak(ctx context.Context, q sqlx.ExtContext, userID int64, current, longest int, last models.Date, now time.Time) error {
	_, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE user_progress SET
		    current_streak = ?,
		    longest_streak = ?,
		    last_activity_date = ?,
		    updated_at = ?
		 WHERE user_id = ?`),
		current, longest, last, now, userID,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

// ── XP Ledger ───────────────────────────────────────────

// InsertXPActivity appends a to the ledger and fills in its id. It reports
// false when an activity with the same (user, reason, source) already exists.
// A unique violation racing past ON CONFLICT is returned as an error so the
// caller can rerun the transaction.
func (s *Store) InsertXPActivity(ctx context.Context, q sqlx.ExtContext, a *models.XPActivity) (bool, error) {
	err := sqlx.GetContext(ctx, q, &a.ID, q.Rebind(
		`INSERT INTO xp_activities (user_id, amount, reason, source_id, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, reason, source_id) DO NOTHING
		 RETURNING id`),
		a.UserID, a.Amount, a.Reason, a.SourceID, a.CreatedAt,
	)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("insert xp activity: %w", err)
	}
}

func (s *Store) ListXPActivities(ctx context.Context, q sqlx.ExtContext, userID int64, limit int) ([]models.XPActivity, error) {
	activities := []models.XPActivity{}
	err := sqlx.SelectContext(ctx, q, &activities, q.Rebind(
		`SELECT id, user_id, amount, reason, source_id, created_at
		 FROM xp_activities WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list xp activities: %w", err)
	}
	return activities, nil
}

// SumXP totals the ledger for a user. It must always equal total_xp.
func (s *Store) SumXP(ctx context.Context, q sqlx.ExtContext, userID int64) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, q, &sum, q.Rebind(
		`SELECT COALESCE(SUM(amount), 0) FROM xp_activities WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("sum xp: %w", err)
	}
	return sum, nil
}

func (s *Store) CountXPActivities(ctx context.Context, q sqlx.ExtContext, userID int64, reason Reason) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(
		`SELECT COUNT(*) FROM xp_activities WHERE user_id = ? AND reason = ?`), userID, string(reason))
	if err != nil {
		return 0, fmt.Errorf("count xp activities: %w", err)
	}
	return n, nil
}

// ── Badges ──────────────────────────────────────────────

func (s *Store) UpsertBadge(ctx context.Context, q sqlx.ExtContext, d BadgeDef) error {
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO badges (key, name, description, xp_reward) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO NOTHING`),
		string(d.Key), d.Name, d.Description, d.XPReward,
	)
	if err != nil {
		return fmt.Errorf("upsert badge %s: %w", d.Key, err)
	}
	return nil
}

func (s *Store) GetBadgeByKey(ctx context.Context, q sqlx.ExtContext, key BadgeKey) (*models.Badge, error) {
	var b models.Badge
	err := sqlx.GetContext(ctx, q, &b, q.Rebind(
		`SELECT id, key, name, description, xp_reward FROM badges WHERE key = ?`), string(key))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// InsertUserBadge unlocks a badge and reports false if it was already unlocked.
func (s *Store) InsertUserBadge(ctx context.Context, q sqlx.ExtContext, ub *models.UserBadge) (bool, error) {
	err := sqlx.GetContext(ctx, q, &ub.ID, q.Rebind(
		`INSERT INTO user_badges (user_id, badge_id, unlocked_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, badge_id) DO NOTHING
		 RETURNING id`),
		ub.UserID, ub.BadgeID, ub.UnlockedAt,
	)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("insert user badge: %w", err)
	}
}

func (s *Store) GetUserBadge(ctx context.Context, q sqlx.ExtContext, userID, badgeID int64) (*models.UserBadge, error) {
	var ub models.UserBadge
	err := sqlx.GetContext(ctx, q, &ub, q.Rebind(
		`SELECT id, user_id, badge_id, unlocked_at FROM user_badges WHERE user_id = ? AND badge_id = ?`),
		userID, badgeID,
	)
	if err != nil {
		return nil, fmt.Errorf("get user badge: %w", err)
	}
	return &ub, nil
}

func (s *Store) ListUserBadges(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.EarnedBadge, error) {
	badges := []models.EarnedBadge{}
	err := sqlx.SelectContext(ctx, q, &badges, q.Rebind(
		`SELECT b.id, b.key, b.name, b.description, b.xp_reward, ub.unlocked_at
		 FROM user_badges ub
		 JOIN badges b ON b.id = ub.badge_id
		 WHERE ub.user_id = ?
		 ORDER BY ub.unlocked_at, b.id`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	return badges, nil
}

// ── Counters ────────────────────────────────────────────

func (s *Store) Counters(ctx context.Context, q sqlx.ExtContext, userID int64) (Counters, error) {
	var c Counters

	err := sqlx.GetContext(ctx, q, &c.CoursesCompleted, q.Rebind(
		`SELECT COUNT(*) FROM enrollments WHERE student_id = ? AND status = ?`),
		userID, models.EnrollmentCompleted)
	if err != nil {
		return c, fmt.Errorf("count completed courses: %w", err)
	}

	err = sqlx.GetContext(ctx, q, &c.QuizzesPassed, q.Rebind(
		`SELECT COUNT(DISTINCT quiz_id) FROM quiz_attempts WHERE student_id = ? AND passed = ?`),
		userID, true)
	if err != nil {
		return c, fmt.Errorf("count passed quizzes: %w", err)
	}

	err = sqlx.GetContext(ctx, q, &c.ReviewsWritten, q.Rebind(
		`SELECT COUNT(*) FROM reviews WHERE student_id = ?`), userID)
	if err != nil {
		return c, fmt.Errorf("count reviews: %w", err)
	}

	err = sqlx.GetContext(ctx, q, &c.LongestStreak, q.Rebind(
		`SELECT COALESCE(MAX(longest_streak), 0) FROM user_progress WHERE user_id = ?`), userID)
	if err != nil {
		return c, fmt.Errorf("read longest streak: %w", err)
	}

	return c, nil
}
