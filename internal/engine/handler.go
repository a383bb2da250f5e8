package engine

import (
	"net/http"

	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/httputil"
	"github.com/tutorhub/backend/internal/middleware"
	"github.com/tutorhub/backend/internal/models"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// ── Activities ──────────────────────────────────────────

func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.RecordActivityRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}
	reason, err := gamification.ParseReason(req.Reason)
	if err != nil {
		httputil.WriteError(w, err, "Invalid reason")
		return
	}

	res, err := h.engine.RecordActivity(r.Context(), userID, reason, req.SourceID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to record activity")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) AdminAward(w http.ResponseWriter, r *http.Request) {
	var req models.AdminAwardRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}
	reason, err := gamification.ParseReason(req.Reason)
	if err != nil {
		httputil.WriteError(w, err, "Invalid reason")
		return
	}

	res, err := h.engine.Award(r.Context(), req.UserID, req.Amount, reason, req.SourceID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to award XP")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// ── Lessons ─────────────────────────────────────────────

func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	lessonID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid lesson id")
		return
	}

	res, err := h.engine.MarkLessonComplete(r.Context(), userID, lessonID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to complete lesson")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) CourseProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	courseID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid course id")
		return
	}

	res, err := h.engine.CourseProgress(r.Context(), userID, courseID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to get course progress")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Sections(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	courseID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid course id")
		return
	}

	sections, err := h.engine.Sections(r.Context(), userID, courseID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to get sections")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"sections": sections})
}

// ── Quizzes ─────────────────────────────────────────────

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid quiz id")
		return
	}

	view, err := h.engine.Quiz(r.Context(), quizID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to get quiz")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	quizID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid quiz id")
		return
	}

	var req models.SubmitAttemptRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}

	res, err := h.engine.SubmitQuizAttempt(r.Context(), userID, quizID, req.Answers, req.TimeTakenSeconds)
	if err != nil {
		httputil.WriteError(w, err, "Failed to submit attempt")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	quizID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid quiz id")
		return
	}

	res, err := h.engine.QuizAttempts(r.Context(), userID, quizID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to get attempts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// ── Reviews ─────────────────────────────────────────────

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	courseID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid course id")
		return
	}

	var req models.SubmitReviewRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}

	res, err := h.engine.SubmitReview(r.Context(), userID, courseID, req.Rating, req.Body)
	if err != nil {
		httputil.WriteError(w, err, "Failed to submit review")
		return
	}

	status := http.StatusCreated
	if res.AlreadyReviewed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, res)
}
