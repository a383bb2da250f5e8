package models

import "time"

// ── Core Gamification Structs ─────────────────────────────

type UserProgress struct {
	UserID           int64     `json:"user_id" db:"user_id"`
	TotalXP          int64     `json:"total_xp" db:"total_xp"`
	CurrentLevel     int       `json:"current_level" db:"current_level"`
	CurrentStreak    int       `json:"current_streak" db:"current_streak"`
	LongestStreak    int       `json:"longest_streak" db:"longest_streak"`
	LastActivityDate Date      `json:"last_activity_date" db:"last_activity_date"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

type XPActivity struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Amount    int       `json:"amount" db:"amount"`
	Reason    string    `json:"reason" db:"reason"`
	SourceID  *int64    `json:"source_id,omitempty" db:"source_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Badge struct {
	ID          int64  `json:"id" db:"id"`
	Key         string `json:"key" db:"key"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	XPReward    int    `json:"xp_reward" db:"xp_reward"`
}

type UserBadge struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	BadgeID    int64     `json:"badge_id" db:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at" db:"unlocked_at"`
}

// EarnedBadge is a badge joined with the time the user unlocked it.
type EarnedBadge struct {
	Badge
	UnlockedAt time.Time `json:"unlocked_at" db:"unlocked_at"`
}

// ── Results ───────────────────────────────────────────────

type AwardResult struct {
	PreviousXP    int64 `json:"previous_xp"`
	NewXP         int64 `json:"new_xp"`
	XPAwarded     int   `json:"xp_awarded"`
	PreviousLevel int   `json:"previous_level"`
	NewLevel      int   `json:"new_level"`
	LeveledUp     bool  `json:"leveled_up"`
}

const (
	StreakNoop     = "noop"
	StreakContinue = "continue"
	StreakReset    = "reset"
)

type StreakResult struct {
	Transition    string `json:"transition"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	Milestone     int    `json:"milestone,omitempty"`
	BonusXP       int    `json:"bonus_xp"`
}

// Outcome summarizes what one engine operation changed for the acting user.
type Outcome struct {
	XPAwarded      int     `json:"xp_awarded"`
	TotalXP        int64   `json:"total_xp"`
	Level          int     `json:"level"`
	LeveledUp      bool    `json:"leveled_up"`
	BadgesUnlocked []Badge `json:"badges_unlocked"`
}

type ActivityResult struct {
	Outcome
	Reason string        `json:"reason"`
	Streak *StreakResult `json:"streak,omitempty"`
}

type ProgressSnapshot struct {
	UserID              int64         `json:"user_id"`
	TotalXP             int64         `json:"total_xp"`
	Level               int           `json:"level"`
	XPForCurrentLevel   int64         `json:"xp_for_current_level"`
	XPForNextLevel      int64         `json:"xp_for_next_level"`
	ProgressToNextLevel int           `json:"progress_to_next_level"`
	CurrentStreak       int           `json:"current_streak"`
	LongestStreak       int           `json:"longest_streak"`
	LastActivityDate    Date          `json:"last_activity_date"`
	Badges              []EarnedBadge `json:"badges"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id" db:"user_id"`
	DisplayName   string `json:"display_name"`
	TotalXP       int64  `json:"total_xp" db:"total_xp"`
	Level         int    `json:"level"`
	CurrentStreak int    `json:"current_streak" db:"current_streak"`
	IsCurrentUser bool   `json:"is_current_user"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// ── Request Types ─────────────────────────────────────────

type RecordActivityRequest struct {
	Reason   string `json:"reason" validate:"required"`
	SourceID *int64 `json:"source_id,omitempty"`
}

type AdminAwardRequest struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	Amount   int    `json:"amount"`
	Reason   string `json:"reason" validate:"required"`
	SourceID *int64 `json:"source_id,omitempty"`
}
