package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/models"
)

type Service struct {
	store   *Store
	rewards gamification.Rewards
	log     *logger.Logger
}

func NewService(store *Store, rewards gamification.Rewards, log *logger.Logger) *Service {
	return &Service{store: store, rewards: rewards, log: log.With("component", "quiz")}
}

func (s *Service) Store() *Store {
	return s.store
}

// SubmitAttempt scores answers, appends an attempt and pays QUIZ_PASS on the
// first passing attempt only. The returned quiz lets the caller decide
// whether the enrollment needs recomputing.
func (s *Service) SubmitAttempt(gt *gamification.Tx, studentID, quizID int64, answers []models.Answer, timeTakenSeconds int) (*models.QuizSubmission, *models.Quiz, error) {
	if timeTakenSeconds < 0 {
		return nil, nil, fmt.Errorf("%w: time_taken_seconds must not be negative", models.ErrInvalidInput)
	}
	ctx, q := gt.Context(), gt.Ext()

	quiz, err := s.store.GetQuiz(ctx, q, quizID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := gt.Progress(studentID); err != nil {
		return nil, nil, err
	}
	questions, err := s.store.ListQuestions(ctx, q, quizID)
	if err != nil {
		return nil, nil, err
	}
	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("%w: %d", models.ErrEmptyQuiz, quizID)
	}

	r := Score(questions, answers, quiz.PassingScore)
	attempt := models.QuizAttempt{
		StudentID:        studentID,
		QuizID:           quizID,
		Score:            r.Score,
		Passed:           r.Passed,
		TimeTakenSeconds: timeTakenSeconds,
		Answers:          answers,
		CreatedAt:        gt.Now(),
	}
	if err := s.store.InsertAttempt(ctx, q, &attempt); err != nil {
		return nil, nil, err
	}

	sub := &models.QuizSubmission{
		Attempt:        attempt,
		Score:          r.Score,
		Passed:         r.Passed,
		CorrectAnswers: r.Correct,
		TotalQuestions: r.Total,
		AnswerResults:  r.Answers,
	}

	if r.Passed {
		amount, _ := s.rewards.For(gamification.ReasonQuizPass)
		if amount > 0 {
			award, err := gt.Award(studentID, amount, gamification.ReasonQuizPass, &quizID)
			if err != nil {
				return nil, nil, fmt.Errorf("quiz xp: %w", err)
			}
			sub.FirstPass = award.XPAwarded > 0
		} else {
			passes, err := s.store.CountPassedAttempts(ctx, q, studentID, quizID)
			if err != nil {
				return nil, nil, err
			}
			sub.FirstPass = passes == 1
		}
		if _, err := gt.EvaluateBadges(studentID); err != nil {
			return nil, nil, err
		}
	}

	best, err := s.store.BestScore(ctx, q, studentID, quizID)
	if err != nil {
		return nil, nil, err
	}
	sub.BestScore = best

	s.log.Debug("quiz attempt scored", "student_id", studentID, "quiz_id", quizID, "score", r.Score, "passed", r.Passed)
	return sub, quiz, nil
}

// View returns the quiz without its answer key.
func (s *Service) View(ctx context.Context, q sqlx.ExtContext, quizID int64) (*models.QuizView, error) {
	quiz, err := s.store.GetQuiz(ctx, q, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.ListQuestions(ctx, q, quizID)
	if err != nil {
		return nil, err
	}
	v := View(*quiz, questions)
	return &v, nil
}

func (s *Service) History(ctx context.Context, q sqlx.ExtContext, studentID, quizID int64) (*models.AttemptHistory, error) {
	quiz, err := s.store.GetQuiz(ctx, q, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, q, studentID, quizID)
	if err != nil {
		return nil, err
	}
	best, err := s.store.BestScore(ctx, q, studentID, quizID)
	if err != nil {
		return nil, err
	}
	return &models.AttemptHistory{
		QuizID:    quizID,
		BestScore: best,
		Passed:    len(attempts) > 0 && best >= quiz.PassingScore,
		Attempts:  attempts,
	}, nil
}

// Create validates and stores a tutor-authored quiz.
func (s *Service) Create(ctx context.Context, q sqlx.ExtContext, courseID int64, req models.CreateQuizRequest, now time.Time) (*models.Quiz, error) {
	passing := models.DefaultPassingScore
	if req.PassingScore != nil {
		passing = *req.PassingScore
	}
	if passing < 0 || passing > 100 {
		return nil, fmt.Errorf("%w: passing_score must be within 0..100", models.ErrInvalidInput)
	}
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("%w: quiz needs at least one question", models.ErrInvalidInput)
	}

	questions := make([]models.QuizQuestion, 0, len(req.Questions))
	for i, rq := range req.Questions {
		if rq.CorrectOptionIndex < 0 || rq.CorrectOptionIndex >= len(rq.Options) {
			return nil, fmt.Errorf("%w: question %d correct_option_index out of range", models.ErrInvalidInput, i+1)
		}
		questions = append(questions, models.QuizQuestion{
			Position:           i,
			Prompt:             rq.Prompt,
			Options:            rq.Options,
			CorrectOptionIndex: rq.CorrectOptionIndex,
		})
	}

	quiz := &models.Quiz{
		CourseID:     courseID,
		LessonID:     req.LessonID,
		Title:        req.Title,
		PassingScore: passing,
		Required:     req.Required,
		CreatedAt:    now,
	}
	if err := s.store.CreateQuiz(ctx, q, quiz, questions); err != nil {
		return nil, err
	}
	s.log.Info("quiz created", "quiz_id", quiz.ID, "course_id", courseID, "questions", len(questions))
	return quiz, nil
}
