package gamification

import (
	"fmt"

	"github.com/tutorhub/backend/internal/models"
)

// BadgeKey is the closed set of badges the engine can unlock.
type BadgeKey string

const (
	BadgeCourse1   BadgeKey = "course_1"
	BadgeCourse5   BadgeKey = "course_5"
	BadgeCourse10  BadgeKey = "course_10"
	BadgeStreak7   BadgeKey = "streak_7"
	BadgeStreak14  BadgeKey = "streak_14"
	BadgeStreak30  BadgeKey = "streak_30"
	BadgeStreak100 BadgeKey = "streak_100"
	BadgeStreak365 BadgeKey = "streak_365"
	BadgeQuiz1     BadgeKey = "quiz_1"
	BadgeQuiz10    BadgeKey = "quiz_10"
	BadgeQuiz50    BadgeKey = "quiz_50"
	BadgeReview1   BadgeKey = "review_1"
	BadgeReview10  BadgeKey = "review_10"
)

// Counter names the aggregate a badge threshold is checked against.
type Counter int

const (
	CounterCourses Counter = iota
	CounterStreak
	CounterQuizzes
	CounterReviews
)

// BadgeDef defines a single badge and the counter threshold that unlocks it.
type BadgeDef struct {
	Key         BadgeKey
	Name        string
	Description string
	XPReward    int // shown in the catalog; never credited to the ledger
	Counter     Counter
	Threshold   int
}

// badgeDefs is the static badge catalog, seeded into the store at startup.
// Streak badges list no reward since their milestone pays STREAK_BONUS.
var badgeDefs = []BadgeDef{
	{BadgeCourse1, "Graduate", "Complete your first course", 25, CounterCourses, 1},
	{BadgeCourse5, "Scholar", "Complete 5 courses", 100, CounterCourses, 5},
	{BadgeCourse10, "Polymath", "Complete 10 courses", 250, CounterCourses, 10},
	{BadgeStreak7, "Week Warrior", "7-day streak", 0, CounterStreak, 7},
	{BadgeStreak14, "Dedicated", "14-day streak", 0, CounterStreak, 14},
	{BadgeStreak30, "Monthly Master", "30-day streak", 0, CounterStreak, 30},
	{BadgeStreak100, "Centurion", "100-day streak", 0, CounterStreak, 100},
	{BadgeStreak365, "Year of Learning", "365-day streak", 0, CounterStreak, 365},
	{BadgeQuiz1, "Quiz Taker", "Pass your first quiz", 10, CounterQuizzes, 1},
	{BadgeQuiz10, "Quiz Whiz", "Pass 10 different quizzes", 50, CounterQuizzes, 10},
	{BadgeQuiz50, "Quiz Master", "Pass 50 different quizzes", 200, CounterQuizzes, 50},
	{BadgeReview1, "Critic", "Write your first course review", 10, CounterReviews, 1},
	{BadgeReview10, "Top Reviewer", "Write 10 course reviews", 50, CounterReviews, 10},
}

var badgeIndex = func() map[BadgeKey]BadgeDef {
	m := make(map[BadgeKey]BadgeDef, len(badgeDefs))
	for _, d := range badgeDefs {
		m[d.Key] = d
	}
	return m
}()

// BadgeDefinitions returns a copy of the badge catalog in display order.
func BadgeDefinitions() []BadgeDef {
	out := make([]BadgeDef, len(badgeDefs))
	copy(out, badgeDefs)
	return out
}

func LookupBadge(key BadgeKey) (BadgeDef, error) {
	d, ok := badgeIndex[key]
	if !ok {
		return BadgeDef{}, fmt.Errorf("%w: unknown badge %q", models.ErrInvalidInput, key)
	}
	return d, nil
}

// StreakBadge returns the badge for a streak milestone length.
func StreakBadge(length int) (BadgeKey, bool) {
	for _, d := range badgeDefs {
		if d.Counter == CounterStreak && d.Threshold == length {
			return d.Key, true
		}
	}
	return "", false
}

// Counters are the per-user aggregates badge criteria read.
type Counters struct {
	CoursesCompleted int
	LongestStreak    int
	QuizzesPassed    int
	ReviewsWritten   int
}

func (c Counters) value(k Counter) int {
	switch k {
	case CounterCourses:
		return c.CoursesCompleted
	case CounterStreak:
		return c.LongestStreak
	case CounterQuizzes:
		return c.QuizzesPassed
	case CounterReviews:
		return c.ReviewsWritten
	}
	return 0
}

// QualifiedBadges returns every badge the counters satisfy. The caller
// unlocks them; already-unlocked badges are no-ops there.
func QualifiedBadges(c Counters) []BadgeKey {
	var keys []BadgeKey
	for _, d := range badgeDefs {
		if c.value(d.Counter) >= d.Threshold {
			keys = append(keys, d.Key)
		}
	}
	return keys
}
