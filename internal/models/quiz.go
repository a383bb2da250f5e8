package models

import "time"

type Quiz struct {
	ID           int64     `json:"id" db:"id"`
	CourseID     int64     `json:"course_id" db:"course_id"`
	LessonID     *int64    `json:"lesson_id,omitempty" db:"lesson_id"`
	Title        string    `json:"title" db:"title"`
	PassingScore int       `json:"passing_score" db:"passing_score"`
	Required     bool      `json:"required" db:"required"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// QuizQuestion is the stored question including its answer key. It is never
// serialized to students; QuestionView is.
type QuizQuestion struct {
	ID                 int64    `db:"id"`
	QuizID             int64    `db:"quiz_id"`
	Position           int      `db:"position"`
	Prompt             string   `db:"prompt"`
	Options            []string `db:"-"`
	OptionsJSON        string   `db:"options"`
	CorrectOptionIndex int      `db:"correct_option_index"`
}

type QuestionView struct {
	ID       int64    `json:"id"`
	Position int      `json:"position"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
}

type QuizView struct {
	ID           int64          `json:"id"`
	CourseID     int64          `json:"course_id"`
	LessonID     *int64         `json:"lesson_id,omitempty"`
	Title        string         `json:"title"`
	PassingScore int            `json:"passing_score"`
	Required     bool           `json:"required"`
	Questions    []QuestionView `json:"questions"`
}

type Answer struct {
	QuestionID          int64 `json:"question_id"`
	SelectedOptionIndex int   `json:"selected_option_index"`
}

type AnswerResult struct {
	QuestionID          int64 `json:"question_id"`
	SelectedOptionIndex *int  `json:"selected_option_index"`
	CorrectOptionIndex  int   `json:"correct_option_index"`
	Correct             bool  `json:"correct"`
}

type QuizAttempt struct {
	ID               int64     `json:"id" db:"id"`
	StudentID        int64     `json:"student_id" db:"student_id"`
	QuizID           int64     `json:"quiz_id" db:"quiz_id"`
	Score            int       `json:"score" db:"score"`
	Passed           bool      `json:"passed" db:"passed"`
	TimeTakenSeconds int       `json:"time_taken_seconds" db:"time_taken_seconds"`
	Answers          []Answer  `json:"answers" db:"-"`
	AnswersJSON      string    `json:"-" db:"answers"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

type QuizSubmission struct {
	Outcome
	Attempt         QuizAttempt    `json:"attempt"`
	Score           int            `json:"score"`
	Passed          bool           `json:"passed"`
	CorrectAnswers  int            `json:"correct_answers"`
	TotalQuestions  int            `json:"total_questions"`
	AnswerResults   []AnswerResult `json:"answer_results"`
	BestScore       int            `json:"best_score"`
	FirstPass       bool           `json:"first_pass"`
	CourseCompleted bool           `json:"course_completed"`
}

type AttemptHistory struct {
	QuizID    int64         `json:"quiz_id"`
	BestScore int           `json:"best_score"`
	Passed    bool          `json:"passed"`
	Attempts  []QuizAttempt `json:"attempts"`
}

type CreateQuizQuestion struct {
	Prompt             string   `json:"prompt" validate:"required"`
	Options            []string `json:"options" validate:"min=2,dive,required"`
	CorrectOptionIndex int      `json:"correct_option_index" validate:"gte=0"`
}

type CreateQuizRequest struct {
	LessonID     *int64               `json:"lesson_id,omitempty"`
	Title        string               `json:"title" validate:"required,max=255"`
	PassingScore *int                 `json:"passing_score,omitempty" validate:"omitempty,min=0,max=100"`
	Required     bool                 `json:"required"`
	Questions    []CreateQuizQuestion `json:"questions" validate:"min=1,dive"`
}

type SubmitAttemptRequest struct {
	Answers          []Answer `json:"answers"`
	TimeTakenSeconds int      `json:"time_taken_seconds"`
}
