package gamification

import (
	"fmt"
	"strings"

	"github.com/tutorhub/backend/internal/config"
	"github.com/tutorhub/backend/internal/models"
)

// Reason is the cause recorded on an XP activity.
type Reason string

const (
	ReasonLogin          Reason = "LOGIN"
	ReasonLessonComplete Reason = "LESSON_COMPLETE"
	ReasonQuizPass       Reason = "QUIZ_PASS"
	ReasonCourseComplete Reason = "COURSE_COMPLETE"
	ReasonStreakBonus    Reason = "STREAK_BONUS"
	ReasonHelpPeer       Reason = "HELP_PEER"
	ReasonSessionAttend  Reason = "SESSION_ATTEND"
	ReasonGroupJoin      Reason = "GROUP_JOIN"
)

// Scope says how a reason relates to its source id.
type Scope int

const (
	// ScopeSource reasons need a source id and pay at most once per source.
	ScopeSource Scope = iota
	// ScopeOptional reasons dedupe only when a source id is supplied.
	ScopeOptional
	// ScopeNone reasons never dedupe; any source id is dropped.
	ScopeNone
)

var reasonScopes = map[Reason]Scope{
	ReasonLogin:          ScopeSource,
	ReasonLessonComplete: ScopeSource,
	ReasonQuizPass:       ScopeSource,
	ReasonCourseComplete: ScopeSource,
	ReasonStreakBonus:    ScopeSource,
	ReasonSessionAttend:  ScopeOptional,
	ReasonGroupJoin:      ScopeOptional,
	ReasonHelpPeer:       ScopeNone,
}

// ParseReason accepts a reason name in any case.
func ParseReason(s string) (Reason, error) {
	r := Reason(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := reasonScopes[r]; !ok {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidReason, s)
	}
	return r, nil
}

func (r Reason) Scope() Scope {
	return reasonScopes[r]
}

// normalizeSource validates sourceID against the reason's scope and returns
// the value to store.
func normalizeSource(r Reason, sourceID *int64) (*int64, error) {
	scope, ok := reasonScopes[r]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidReason, r)
	}
	switch scope {
	case ScopeSource:
		if sourceID == nil {
			return nil, fmt.Errorf("%w: %s", models.ErrSourceRequired, r)
		}
		return sourceID, nil
	case ScopeNone:
		return nil, nil
	default:
		return sourceID, nil
	}
}

// Rewards maps each activity reason to its fixed XP amount. Reasons paid by
// the engine itself (streak bonuses) have no entry.
type Rewards map[Reason]int

func RewardsFromConfig(cfg config.XPConfig) Rewards {
	return Rewards{
		ReasonLogin:          cfg.Login,
		ReasonLessonComplete: cfg.LessonComplete,
		ReasonQuizPass:       cfg.QuizPass,
		ReasonCourseComplete: cfg.CourseComplete,
		ReasonHelpPeer:       cfg.HelpPeer,
		ReasonSessionAttend:  cfg.SessionAttend,
		ReasonGroupJoin:      cfg.GroupJoin,
	}
}

// DefaultRewards matches the configuration defaults.
func DefaultRewards() Rewards {
	return RewardsFromConfig(config.XPConfig{
		Login:          5,
		LessonComplete: 10,
		QuizPass:       20,
		CourseComplete: 50,
		HelpPeer:       15,
		SessionAttend:  25,
		GroupJoin:      10,
	})
}

func (r Rewards) For(reason Reason) (int, bool) {
	amount, ok := r[reason]
	return amount, ok
}
