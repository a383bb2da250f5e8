// Package progress decides when lessons, sections and courses count as
// complete and keeps enrollments in step with lesson and quiz events.
package progress

import (
	"math"

	"github.com/tutorhub/backend/internal/models"
)

// Counts are the inputs of the course completion predicate for one student.
type Counts struct {
	Lessons               int
	DoneLessons           int
	RequiredQuizzes       int
	PassedRequiredQuizzes int
}

func (c Counts) total() int {
	return c.Lessons + c.RequiredQuizzes
}

// Complete reports whether every lesson is done and every required quiz
// passed. A course with nothing to complete never completes.
func (c Counts) Complete() bool {
	return c.total() > 0 &&
		c.DoneLessons >= c.Lessons &&
		c.PassedRequiredQuizzes >= c.RequiredQuizzes
}

// Percent returns the rounded share of completed items. It stays below 100
// until Complete holds.
func Percent(c Counts) int {
	total := c.total()
	if total == 0 {
		return 0
	}
	done := c.DoneLessons + c.PassedRequiredQuizzes
	pct := int(math.Round(100 * float64(done) / float64(total)))
	if pct > 100 {
		pct = 100
	}
	if !c.Complete() && pct > 99 {
		pct = 99
	}
	return pct
}

// NextProgress returns the enrollment progress after recomputing from c.
// Progress never decreases.
func NextProgress(current int, c Counts) int {
	if p := Percent(c); p > current {
		return p
	}
	return current
}

// SectionCount is one section's lesson totals for a student.
type SectionCount struct {
	SectionID int64  `db:"section_id"`
	Title     string `db:"title"`
	Position  int    `db:"position"`
	Lessons   int    `db:"lessons"`
	Done      int    `db:"done"`
}

func sectionPercent(s SectionCount) int {
	if s.Lessons == 0 {
		return 100
	}
	return int(math.Round(100 * float64(s.Done) / float64(s.Lessons)))
}

// SectionGates returns each section's status in order. The first section is
// always unlocked; each later one unlocks once the previous section is
// unlocked and reaches threshold percent.
func SectionGates(sections []SectionCount, threshold int) []models.SectionStatus {
	out := make([]models.SectionStatus, 0, len(sections))
	prevPercent, prevUnlocked := 100, true
	for i, s := range sections {
		pct := sectionPercent(s)
		unlocked := i == 0 || (prevUnlocked && prevPercent >= threshold)
		out = append(out, models.SectionStatus{
			SectionID:        s.SectionID,
			Title:            s.Title,
			Position:         s.Position,
			TotalLessons:     s.Lessons,
			CompletedLessons: s.Done,
			Percent:          pct,
			Unlocked:         unlocked,
		})
		prevPercent, prevUnlocked = pct, unlocked
	}
	return out
}
