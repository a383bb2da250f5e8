package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/database"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/quiz"
)

type Service struct {
	store   *Store
	quizzes *quiz.Service
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store *Store, quizzes *quiz.Service, log *logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, quizzes: quizzes, log: log.With("component", "catalog"), now: now}
}

func (s *Service) Store() *Store {
	return s.store
}

// authorize allows admins and the course's own tutor.
func authorize(c *models.Course, actorID int64, role string) error {
	if role == models.RoleAdmin || (role == models.RoleTutor && c.TutorID == actorID) {
		return nil
	}
	return fmt.Errorf("%w: not the course tutor", models.ErrForbidden)
}

func (s *Service) CreateCourse(ctx context.Context, tutorID int64, role string, req models.CreateCourseRequest) (*models.Course, error) {
	if !models.CanAuthor(role) {
		return nil, fmt.Errorf("%w: only tutors create courses", models.ErrForbidden)
	}
	c := &models.Course{
		TutorID:     tutorID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateCourse(ctx, s.store.db, c); err != nil {
		return nil, err
	}
	s.log.Info("course created", "course_id", c.ID, "tutor_id", tutorID)
	return c, nil
}

func (s *Service) CreateSection(ctx context.Context, actorID int64, role string, courseID int64, req models.CreateSectionRequest) (*models.Section, error) {
	c, err := s.store.GetCourse(ctx, s.store.db, courseID)
	if err != nil {
		return nil, err
	}
	if err := authorize(c, actorID, role); err != nil {
		return nil, err
	}
	sec := &models.Section{CourseID: courseID, Title: strings.TrimSpace(req.Title), Position: req.Position}
	if err := s.store.CreateSection(ctx, s.store.db, sec); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: section position %d is taken", models.ErrInvalidInput, req.Position)
		}
		return nil, err
	}
	return sec, nil
}

func (s *Service) CreateLesson(ctx context.Context, actorID int64, role string, sectionID int64, req models.CreateLessonRequest) (*models.Lesson, error) {
	sec, err := s.store.GetSection(ctx, s.store.db, sectionID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetCourse(ctx, s.store.db, sec.CourseID)
	if err != nil {
		return nil, err
	}
	if err := authorize(c, actorID, role); err != nil {
		return nil, err
	}
	l := &models.Lesson{SectionID: sec.ID, CourseID: sec.CourseID, Title: strings.TrimSpace(req.Title), Position: req.Position}
	if err := s.store.CreateLesson(ctx, s.store.db, l); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: lesson position %d is taken", models.ErrInvalidInput, req.Position)
		}
		return nil, err
	}
	return l, nil
}

func (s *Service) CreateQuiz(ctx context.Context, actorID int64, role string, courseID int64, req models.CreateQuizRequest) (*models.Quiz, error) {
	var created *models.Quiz
	err := database.WithTx(ctx, s.store.db, func(tx *sqlx.Tx) error {
		c, err := s.store.GetCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if err := authorize(c, actorID, role); err != nil {
			return err
		}
		if req.LessonID != nil {
			lessonCourse, err := s.store.LessonCourse(ctx, tx, *req.LessonID)
			if err != nil {
				return err
			}
			if lessonCourse != courseID {
				return fmt.Errorf("%w: lesson %d belongs to another course", models.ErrInvalidInput, *req.LessonID)
			}
		}
		created, err = s.quizzes.Create(ctx, tx, courseID, req, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Enroll(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	if _, err := s.store.GetCourse(ctx, s.store.db, courseID); err != nil {
		return nil, err
	}
	return s.store.Enroll(ctx, s.store.db, studentID, courseID, s.now())
}
