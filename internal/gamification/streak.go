package gamification

import "github.com/tutorhub/backend/internal/models"

// StreakMilestones maps streak lengths to the bonus XP paid when a streak
// continues onto them.
var StreakMilestones = map[int]int{
	7:   50,
	14:  100,
	30:  250,
	100: 1000,
	365: 5000,
}

type StreakState struct {
	Current int
	Longest int
	Last    models.Date
}

type StreakUpdate struct {
	Transition string
	Current    int
	Longest    int
	Milestone  int
	Bonus      int
}

// NextStreak applies one qualifying activity on today to state. Days are
// calendar days; a clock that moved backwards counts as already active.
func NextStreak(state StreakState, today models.Date) StreakUpdate {
	u := StreakUpdate{Current: state.Current, Longest: state.Longest}

	delta := 0
	if !state.Last.IsZero() {
		delta = today.DaysSince(state.Last)
	}

	switch {
	case !state.Last.IsZero() && delta <= 0:
		u.Transition = models.StreakNoop
		return u
	case !state.Last.IsZero() && delta == 1:
		u.Transition = models.StreakContinue
		u.Current++
		if bonus, ok := StreakMilestones[u.Current]; ok {
			u.Milestone = u.Current
			u.Bonus = bonus
		}
	default:
		u.Transition = models.StreakReset
		u.Current = 1
	}

	if u.Current > u.Longest {
		u.Longest = u.Current
	}
	return u
}
