package models

import "time"

const (
	EnrollmentActive    = "ACTIVE"
	EnrollmentCompleted = "COMPLETED"

	DefaultPassingScore = 70
)

type Course struct {
	ID          int64     `json:"id" db:"id"`
	TutorID     int64     `json:"tutor_id" db:"tutor_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Section struct {
	ID       int64  `json:"id" db:"id"`
	CourseID int64  `json:"course_id" db:"course_id"`
	Title    string `json:"title" db:"title"`
	Position int    `json:"position" db:"position"`
}

type Lesson struct {
	ID        int64  `json:"id" db:"id"`
	SectionID int64  `json:"section_id" db:"section_id"`
	CourseID  int64  `json:"course_id" db:"course_id"`
	Title     string `json:"title" db:"title"`
	Position  int    `json:"position" db:"position"`
}

type Enrollment struct {
	ID          int64      `json:"id" db:"id"`
	StudentID   int64      `json:"student_id" db:"student_id"`
	CourseID    int64      `json:"course_id" db:"course_id"`
	Progress    int        `json:"progress" db:"progress"`
	Status      string     `json:"status" db:"status"`
	EnrolledAt  time.Time  `json:"enrolled_at" db:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type Review struct {
	ID        int64     `json:"id" db:"id"`
	CourseID  int64     `json:"course_id" db:"course_id"`
	StudentID int64     `json:"student_id" db:"student_id"`
	Rating    int       `json:"rating" db:"rating"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type LessonProgress struct {
	ID          int64      `json:"id" db:"id"`
	StudentID   int64      `json:"student_id" db:"student_id"`
	LessonID    int64      `json:"lesson_id" db:"lesson_id"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ── Progress ──────────────────────────────────────────────

type SectionStatus struct {
	SectionID        int64  `json:"section_id"`
	Title            string `json:"title"`
	Position         int    `json:"position"`
	TotalLessons     int    `json:"total_lessons"`
	CompletedLessons int    `json:"completed_lessons"`
	Percent          int    `json:"percent"`
	Unlocked         bool   `json:"unlocked"`
}

type CourseProgress struct {
	Enrollment            Enrollment `json:"enrollment"`
	TotalLessons          int        `json:"total_lessons"`
	CompletedLessons      int        `json:"completed_lessons"`
	RequiredQuizzes       int        `json:"required_quizzes"`
	PassedRequiredQuizzes int        `json:"passed_required_quizzes"`
}

type EnrollmentUpdate struct {
	Enrollment      Enrollment `json:"enrollment"`
	CourseCompleted bool       `json:"course_completed"`
}

type LessonCompletion struct {
	Outcome
	LessonProgress     LessonProgress `json:"lesson_progress"`
	AlreadyCompleted   bool           `json:"already_completed"`
	NewStreak          int            `json:"new_streak"`
	Streak             *StreakResult  `json:"streak,omitempty"`
	EnrollmentProgress int            `json:"enrollment_progress"`
	CourseCompleted    bool           `json:"course_completed"`
}

// ── Requests ──────────────────────────────────────────────

type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
}

type CreateSectionRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	Position int    `json:"position" validate:"gte=0"`
}

type CreateLessonRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	Position int    `json:"position" validate:"gte=0"`
}

type SubmitReviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Body   string `json:"body"`
}

type ReviewResult struct {
	Outcome
	Review          Review `json:"review"`
	AlreadyReviewed bool   `json:"already_reviewed"`
}
