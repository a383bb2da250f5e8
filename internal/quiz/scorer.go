// Package quiz scores quiz attempts and keeps the attempt log.
package quiz

import (
	"math"

	"github.com/tutorhub/backend/internal/models"
)

// Result is the outcome of scoring one answer set.
type Result struct {
	Score   int
	Passed  bool
	Correct int
	Total   int
	Answers []models.AnswerResult
}

// Score grades answers against questions. Unanswered questions count as
// wrong, answers to unknown questions are ignored and only the first answer
// per question counts.
func Score(questions []models.QuizQuestion, answers []models.Answer, passingScore int) Result {
	selected := make(map[int64]int, len(answers))
	for _, a := range answers {
		if _, seen := selected[a.QuestionID]; !seen {
			selected[a.QuestionID] = a.SelectedOptionIndex
		}
	}

	r := Result{Total: len(questions), Answers: make([]models.AnswerResult, 0, len(questions))}
	for _, q := range questions {
		ar := models.AnswerResult{QuestionID: q.ID, CorrectOptionIndex: q.CorrectOptionIndex}
		if idx, ok := selected[q.ID]; ok {
			idx := idx
			ar.SelectedOptionIndex = &idx
			ar.Correct = idx == q.CorrectOptionIndex
		}
		if ar.Correct {
			r.Correct++
		}
		r.Answers = append(r.Answers, ar)
	}

	r.Score = Percent(r.Correct, r.Total)
	r.Passed = r.Total > 0 && r.Score >= passingScore
	return r
}

// Percent returns round(100*correct/total), or 0 for an empty quiz.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// View strips the answer key from a quiz before it is shown to students.
func View(q models.Quiz, questions []models.QuizQuestion) models.QuizView {
	v := models.QuizView{
		ID:           q.ID,
		CourseID:     q.CourseID,
		LessonID:     q.LessonID,
		Title:        q.Title,
		PassingScore: q.PassingScore,
		Required:     q.Required,
		Questions:    make([]models.QuestionView, 0, len(questions)),
	}
	for _, qq := range questions {
		v.Questions = append(v.Questions, models.QuestionView{
			ID:       qq.ID,
			Position: qq.Position,
			Prompt:   qq.Prompt,
			Options:  qq.Options,
		})
	}
	return v
}
