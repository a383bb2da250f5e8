package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

func (s *Store) GetQuiz(ctx context.Context, q sqlx.ExtContext, quizID int64) (*models.Quiz, error) {
	var quiz models.Quiz
	err := sqlx.GetContext(ctx, q, &quiz, q.Rebind(
		`SELECT id, course_id, lesson_id, title, passing_score, required, created_at
		 FROM quizzes WHERE id = ?`), quizID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", models.ErrQuizNotFound, quizID)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return &quiz, nil
}

func (s *Store) ListQuestions(ctx context.Context, q sqlx.ExtContext, quizID int64) ([]models.QuizQuestion, error) {
	questions := []models.QuizQuestion{}
	err := sqlx.SelectContext(ctx, q, &questions, q.Rebind(
		`SELECT id, quiz_id, position, prompt, options, correct_option_index
		 FROM quiz_questions WHERE quiz_id = ?
		 ORDER BY position, id`), quizID)
	if err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	for i := range questions {
		if err := json.Unmarshal([]byte(questions[i].OptionsJSON), &questions[i].Options); err != nil {
			return nil, fmt.Errorf("decode options for question %d: %w", questions[i].ID, err)
		}
	}
	return questions, nil
}

// CreateQuiz inserts the quiz and its questions.
func (s *Store) CreateQuiz(ctx context.Context, q sqlx.ExtContext, quiz *models.Quiz, questions []models.QuizQuestion) error {
	err := sqlx.GetContext(ctx, q, &quiz.ID, q.Rebind(
		`INSERT INTO quizzes (course_id, lesson_id, title, passing_score, required, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		quiz.CourseID, quiz.LessonID, quiz.Title, quiz.PassingScore, quiz.Required, quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}

	for i := range questions {
		qq := &questions[i]
		qq.QuizID = quiz.ID
		opts, err := json.Marshal(qq.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		qq.OptionsJSON = string(opts)
		err = sqlx.GetContext(ctx, q, &qq.ID, q.Rebind(
			`INSERT INTO quiz_questions (quiz_id, position, prompt, options, correct_option_index)
			 VALUES (?, ?, ?, ?, ?)
			 RETURNING id`),
			qq.QuizID, qq.Position, qq.Prompt, qq.OptionsJSON, qq.CorrectOptionIndex,
		)
		if err != nil {
			return fmt.Errorf("insert quiz question: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertAttempt(ctx context.Context, q sqlx.ExtContext, a *models.QuizAttempt) error {
	answers := a.Answers
	if answers == nil {
		answers = []models.Answer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	a.AnswersJSON = string(raw)

	err = sqlx.GetContext(ctx, q, &a.ID, q.Rebind(
		`INSERT INTO quiz_attempts (student_id, quiz_id, score, passed, time_taken_seconds, answers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		a.StudentID, a.QuizID, a.Score, a.Passed, a.TimeTakenSeconds, a.AnswersJSON, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz attempt: %w", err)
	}
	return nil
}

// BestScore is the highest score over all attempts, computed on read.
func (s *Store) BestScore(ctx context.Context, q sqlx.ExtContext, studentID, quizID int64) (int, error) {
	var best int
	err := sqlx.GetContext(ctx, q, &best, q.Rebind(
		`SELECT COALESCE(MAX(score), 0) FROM quiz_attempts WHERE student_id = ? AND quiz_id = ?`),
		studentID, quizID)
	if err != nil {
		return 0, fmt.Errorf("best score: %w", err)
	}
	return best, nil
}

func (s *Store) CountPassedAttempts(ctx context.Context, q sqlx.ExtContext, studentID, quizID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(
		`SELECT COUNT(*) FROM quiz_attempts WHERE student_id = ? AND quiz_id = ? AND passed = ?`),
		studentID, quizID, true)
	if err != nil {
		return 0, fmt.Errorf("count passed attempts: %w", err)
	}
	return n, nil
}

func (s *Store) ListAttempts(ctx context.Context, q sqlx.ExtContext, studentID, quizID int64) ([]models.QuizAttempt, error) {
	attempts := []models.QuizAttempt{}
	err := sqlx.SelectContext(ctx, q, &attempts, q.Rebind(
		`SELECT id, student_id, quiz_id, score, passed, time_taken_seconds, answers, created_at
		 FROM quiz_attempts WHERE student_id = ? AND quiz_id = ?
		 ORDER BY created_at, id`),
		studentID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	for i := range attempts {
		if err := json.Unmarshal([]byte(attempts[i].AnswersJSON), &attempts[i].Answers); err != nil {
			return nil, fmt.Errorf("decode answers for attempt %d: %w", attempts[i].ID, err)
		}
	}
	return attempts, nil
}
