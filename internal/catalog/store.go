// Package catalog holds courses, their sections and lessons, enrollments
// and reviews.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/models"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

// ── Courses ─────────────────────────────────────────────

func (s *Store) CreateCourse(ctx context.Context, q sqlx.ExtContext, c *models.Course) error {
	err := sqlx.GetContext(ctx, q, &c.ID, q.Rebind(
		`INSERT INTO courses (tutor_id, title, description, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`),
		c.TutorID, c.Title, c.Description, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (s *Store) GetCourse(ctx context.Context, q sqlx.ExtContext, courseID int64) (*models.Course, error) {
	var c models.Course
	err := sqlx.GetContext(ctx, q, &c, q.Rebind(
		`SELECT id, tutor_id, title, description, created_at FROM courses WHERE id = ?`), courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrCourseNotFound, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &c, nil
}

// ── Sections & Lessons ──────────────────────────────────

func (s *Store) CreateSection(ctx context.Context, q sqlx.ExtContext, sec *models.Section) error {
	err := sqlx.GetContext(ctx, q, &sec.ID, q.Rebind(
		`INSERT INTO sections (course_id, title, position) VALUES (?, ?, ?) RETURNING id`),
		sec.CourseID, sec.Title, sec.Position,
	)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

func (s *Store) GetSection(ctx context.Context, q sqlx.ExtContext, sectionID int64) (*models.Section, error) {
	var sec models.Section
	err := sqlx.GetContext(ctx, q, &sec, q.Rebind(
		`SELECT id, course_id, title, position FROM sections WHERE id = ?`), sectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: section %d", models.ErrCourseNotFound, sectionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get section: %w", err)
	}
	return &sec, nil
}

func (s *Store) CreateLesson(ctx context.Context, q sqlx.ExtContext, l *models.Lesson) error {
	err := sqlx.GetContext(ctx, q, &l.ID, q.Rebind(
		`INSERT INTO lessons (section_id, course_id, title, position) VALUES (?, ?, ?, ?) RETURNING id`),
		l.SectionID, l.CourseID, l.Title, l.Position,
	)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

func (s *Store) LessonCourse(ctx context.Context, q sqlx.ExtContext, lessonID int64) (int64, error) {
	var courseID int64
	err := sqlx.GetContext(ctx, q, &courseID, q.Rebind(`SELECT course_id FROM lessons WHERE id = ?`), lessonID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", models.ErrLessonNotFound, lessonID)
	}
	if err != nil {
		return 0, fmt.Errorf("get lesson course: %w", err)
	}
	return courseID, nil
}

// ── Enrollments ─────────────────────────────────────────

// Enroll creates the enrollment if missing and returns it either way.
func (s *Store) Enroll(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64, now time.Time) (*models.Enrollment, error) {
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO enrollments (student_id, course_id, progress, status, enrolled_at)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT (student_id, course_id) DO NOTHING`),
		studentID, courseID, models.EnrollmentActive, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	var e models.Enrollment
	err = sqlx.GetContext(ctx, q, &e, q.Rebind(
		`SELECT id, student_id, course_id, progress, status, enrolled_at, completed_at
		 FROM enrollments WHERE student_id = ? AND course_id = ?`),
		studentID, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &e, nil
}

// ── Reviews ─────────────────────────────────────────────

// InsertReview stores r and reports false if the student already reviewed
// the course.
func (s *Store) InsertReview(ctx context.Context, q sqlx.ExtContext, r *models.Review) (bool, error) {
	err := sqlx.GetContext(ctx, q, &r.ID, q.Rebind(
		`INSERT INTO reviews (course_id, student_id, rating, body, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (course_id, student_id) DO NOTHING
		 RETURNING id`),
		r.CourseID, r.StudentID, r.Rating, r.Body, r.CreatedAt,
	)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("insert review: %w", err)
	}
}

func (s *Store) GetReview(ctx context.Context, q sqlx.ExtContext, courseID, studentID int64) (*models.Review, error) {
	var r models.Review
	err := sqlx.GetContext(ctx, q, &r, q.Rebind(
		`SELECT id, course_id, student_id, rating, body, created_at
		 FROM reviews WHERE course_id = ? AND student_id = ?`),
		courseID, studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &r, nil
}

func (s *Store) IsEnrolled(ctx context.Context, q sqlx.ExtContext, studentID, courseID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(
		`SELECT COUNT(*) FROM enrollments WHERE student_id = ? AND course_id = ?`), studentID, courseID)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return n > 0, nil
}
