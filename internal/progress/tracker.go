package progress

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/models"
)

type Tracker struct {
	store     *Store
	rewards   gamification.Rewards
	threshold int
	log       *logger.Logger
}

// NewTracker returns a tracker paying rewards and gating sections at
// threshold percent.
func NewTracker(store *Store, rewards gamification.Rewards, threshold int, log *logger.Logger) *Tracker {
	return &Tracker{
		store:     store,
		rewards:   rewards,
		threshold: threshold,
		log:       log.With("component", "progress"),
	}
}

// MarkLessonComplete records a first completion of lessonID and cascades
// into XP, the streak and the enrollment. Repeat calls change nothing.
func (t *Tracker) MarkLessonComplete(gt *gamification.Tx, studentID, lessonID int64, today models.Date) (*models.LessonCompletion, error) {
	ctx, q := gt.Context(), gt.Ext()

	lesson, err := t.store.GetLesson(ctx, q, lessonID)
	if err != nil {
		return nil, err
	}
	p, err := gt.Progress(studentID)
	if err != nil {
		return nil, err
	}
	if _, err := t.store.GetEnrollment(ctx, q, studentID, lesson.CourseID, true); err != nil {
		return nil, err
	}

	first, err := t.store.CompleteLesson(ctx, q, studentID, lessonID, gt.Now())
	if err != nil {
		return nil, err
	}

	res := &models.LessonCompletion{AlreadyCompleted: !first, NewStreak: p.CurrentStreak}
	if first {
		amount, _ := t.rewards.For(gamification.ReasonLessonComplete)
		if amount > 0 {
			if _, err := gt.Award(studentID, amount, gamification.ReasonLessonComplete, &lessonID); err != nil {
				return nil, fmt.Errorf("lesson xp: %w", err)
			}
		}
		streak, err := gt.UpdateStreak(studentID, today)
		if err != nil {
			return nil, err
		}
		res.Streak = streak
		res.NewStreak = streak.CurrentStreak
		t.log.Debug("lesson completed", "student_id", studentID, "lesson_id", lessonID, "course_id", lesson.CourseID)
	}

	update, err := t.RecomputeEnrollment(gt, studentID, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	res.EnrollmentProgress = update.Enrollment.Progress
	res.CourseCompleted = update.CourseCompleted

	lp, err := t.store.GetLessonProgress(ctx, q, studentID, lessonID)
	if err != nil {
		return nil, err
	}
	res.LessonProgress = *lp
	return res, nil
}

// RecomputeEnrollment brings the enrollment in line with the completion
// predicate. It is the single place a course becomes COMPLETED, whether the
// trigger was a lesson or a quiz.
func (t *Tracker) RecomputeEnrollment(gt *gamification.Tx, studentID, courseID int64) (*models.EnrollmentUpdate, error) {
	ctx, q := gt.Context(), gt.Ext()

	e, err := t.store.GetEnrollment(ctx, q, studentID, courseID, true)
	if err != nil {
		return nil, err
	}
	c, err := t.store.CourseCounts(ctx, q, studentID, courseID)
	if err != nil {
		return nil, err
	}

	next := NextProgress(e.Progress, c)
	completing := c.Complete() && e.Status != models.EnrollmentCompleted
	if next == e.Progress && !completing {
		return &models.EnrollmentUpdate{Enrollment: *e}, nil
	}

	e.Progress = next
	if completing {
		now := gt.Now()
		e.Progress = 100
		e.Status = models.EnrollmentCompleted
		e.CompletedAt = &now
	}
	if err := t.store.UpdateEnrollment(ctx, q, e); err != nil {
		return nil, err
	}

	if completing {
		amount, _ := t.rewards.For(gamification.ReasonCourseComplete)
		if amount > 0 {
			if _, err := gt.Award(studentID, amount, gamification.ReasonCourseComplete, &courseID); err != nil {
				return nil, fmt.Errorf("course xp: %w", err)
			}
		}
		if _, err := gt.EvaluateBadges(studentID); err != nil {
			return nil, err
		}
		t.log.Info("course completed", "student_id", studentID, "course_id", courseID)
	}
	return &models.EnrollmentUpdate{Enrollment: *e, CourseCompleted: completing}, nil
}

// CourseProgress is the read-only progress view of one enrollment.
func (t *Tracker) CourseProgress(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64) (*models.CourseProgress, error) {
	e, err := t.store.GetEnrollment(ctx, q, studentID, courseID, false)
	if err != nil {
		return nil, err
	}
	c, err := t.store.CourseCounts(ctx, q, studentID, courseID)
	if err != nil {
		return nil, err
	}
	return &models.CourseProgress{
		Enrollment:            *e,
		TotalLessons:          c.Lessons,
		CompletedLessons:      c.DoneLessons,
		RequiredQuizzes:       c.RequiredQuizzes,
		PassedRequiredQuizzes: c.PassedRequiredQuizzes,
	}, nil
}

// Sections evaluates section gates against current lesson progress. The
// result is never cached.
func (t *Tracker) Sections(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64) ([]models.SectionStatus, error) {
	exists, err := t.store.CourseExists(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", models.ErrCourseNotFound, courseID)
	}
	counts, err := t.store.SectionCounts(ctx, q, studentID, courseID)
	if err != nil {
		return nil, err
	}
	return SectionGates(counts, t.threshold), nil
}
