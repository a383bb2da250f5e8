package progress

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

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetLesson(ctx context.Context, q sqlx.ExtContext, lessonID int64) (*models.Lesson, error) {
	var l models.Lesson
	err := sqlx.GetContext(ctx, q, &l, q.Rebind(
		`SELECT id, section_id, course_id, title, position FROM lessons WHERE id = ?`), lessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrLessonNotFound, lessonID)
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return &l, nil
}

func (s *Store) CourseExists(ctx context.Context, q sqlx.ExtContext, courseID int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM courses WHERE id = ?`), courseID); err != nil {
		return false, fmt.Errorf("check course: %w", err)
	}
	return n > 0, nil
}

// GetEnrollment returns ErrNotEnrolled when the pair has no enrollment.
func (s *Store) GetEnrollment(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64, lock bool) (*models.Enrollment, error) {
	query := `SELECT id, student_id, course_id, progress, status, enrolled_at, completed_at
		FROM enrollments WHERE student_id = ? AND course_id = ?`
	if lock {
		query += database.ForUpdate(q)
	}
	var e models.Enrollment
	err := sqlx.GetContext(ctx, q, &e, q.Rebind(query), studentID, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &e, nil
}

func (s *Store) UpdateEnrollment(ctx context.Context, q sqlx.ExtContext, e *models.Enrollment) error {
	_, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE enrollments SET progress = ?, status = ?, completed_at = ? WHERE id = ?`),
		e.Progress, e.Status, e.CompletedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// CompleteLesson marks the lesson complete for the student. It reports
// false when the lesson was already complete.
func (s *Store) CompleteLesson(ctx context.Context, q sqlx.ExtContext, studentID, lessonID int64, now time.Time) (bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, q.Rebind(
		`INSERT INTO lesson_progress (student_id, lesson_id, completed, completed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (student_id, lesson_id) DO UPDATE
		    SET completed = excluded.completed, completed_at = excluded.completed_at
		    WHERE NOT lesson_progress.completed
		 RETURNING id`),
		studentID, lessonID, true, now,
	)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("complete lesson: %w", err)
	}
}

func (s *Store) GetLessonProgress(ctx context.Context, q sqlx.ExtContext, studentID, lessonID int64) (*models.LessonProgress, error) {
	var lp models.LessonProgress
	err := sqlx.GetContext(ctx, q, &lp, q.Rebind(
		`SELECT id, student_id, lesson_id, completed, completed_at
		 FROM lesson_progress WHERE student_id = ? AND lesson_id = ?`),
		studentID, lessonID,
	)
	if err != nil {
		return nil, fmt.Errorf("get lesson progress: %w", err)
	}
	return &lp, nil
}

// CourseCounts gathers the completion predicate inputs for one student.
func (s *Store) CourseCounts(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64) (Counts, error) {
	var c Counts

	err := sqlx.GetContext(ctx, q, &c.Lessons, q.Rebind(
		`SELECT COUNT(*) FROM lessons WHERE course_id = ?`), courseID)
	if err != nil {
		return c, fmt.Errorf("count lessons: %w", err)
	}

	err = sqlx.GetContext(ctx, q, &c.DoneLessons, q.Rebind(
		`SELECT COUNT(*) FROM lesson_progress lp
		 JOIN lessons l ON l.id = lp.lesson_id
		 WHERE lp.student_id = ? AND l.course_id = ? AND lp.completed = ?`),
		studentID, courseID, true)
	if err != nil {
		return c, fmt.Errorf("count completed lessons: %w", err)
	}

	err = sqlx.GetContext(ctx, q, &c.RequiredQuizzes, q.Rebind(
		`SELECT COUNT(*) FROM quizzes WHERE course_id = ? AND required = ?`), courseID, true)
	if err != nil {
		return c, fmt.Errorf("count required quizzes: %w", err)
	}

	err = sqlx.GetContext(ctx, q, &c.PassedRequiredQuizzes, q.Rebind(
		`SELECT COUNT(DISTINCT qa.quiz_id) FROM quiz_attempts qa
		 JOIN quizzes z ON z.id = qa.quiz_id
		 WHERE qa.student_id = ? AND z.course_id = ? AND z.required = ? AND qa.passed = ?`),
		studentID, courseID, true, true)
	if err != nil {
		return c, fmt.Errorf("count passed quizzes: %w", err)
	}

	return c, nil
}

// SectionCounts returns per-section lesson totals in section order.
func (s *Store) SectionCounts(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64) ([]SectionCount, error) {
	sections := []SectionCount{}
	err := sqlx.SelectContext(ctx, q, &sections, q.Rebind(
		`SELECT s.id AS section_id, s.title, s.position,
		        COUNT(l.id) AS lessons,
		        COUNT(lp.id) AS done
		 FROM sections s
		 LEFT JOIN lessons l ON l.section_id = s.id
		 LEFT JOIN lesson_progress lp
		        ON lp.lesson_id = l.id AND lp.student_id = ? AND lp.completed = ?
		 WHERE s.course_id = ?
		 GROUP BY s.id, s.title, s.position
		 ORDER BY s.position, s.id`),
		studentID, true, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("count sections: %w", err)
	}
	return sections, nil
}
