package models

import "errors"

var (
	ErrInvalidAmount  = errors.New("xp amount must be positive")
	ErrInvalidReason  = errors.New("unknown xp reason")
	ErrSourceRequired = errors.New("reason requires a source id")
	ErrUserNotFound   = errors.New("user not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrQuizNotFound   = errors.New("quiz not found")
	ErrNotEnrolled    = errors.New("student is not enrolled in course")
	ErrEmptyQuiz      = errors.New("quiz has no questions")
	ErrInvalidInput   = errors.New("invalid input")
	ErrForbidden      = errors.New("forbidden")
)
