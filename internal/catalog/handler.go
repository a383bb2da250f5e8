package catalog

import (
	"net/http"

	"github.com/tutorhub/backend/internal/httputil"
	"github.com/tutorhub/backend/internal/middleware"
	"github.com/tutorhub/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ── Authoring ───────────────────────────────────────────

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.CreateCourseRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}

	course, err := h.service.CreateCourse(r.Context(), userID, middleware.Role(r.Context()), req)
	if err != nil {
		httputil.WriteError(w, err, "Failed to create course")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, course)
}

func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
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

	var req models.CreateSectionRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}

	section, err := h.service.CreateSection(r.Context(), userID, middleware.Role(r.Context()), courseID, req)
	if err != nil {
		httputil.WriteError(w, err, "Failed to create section")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, section)
}

func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	sectionID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteError(w, err, "Invalid section id")
		return
	}

	var req models.CreateLessonRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}

	lesson, err := h.service.CreateLesson(r.Context(), userID, middleware.Role(r.Context()), sectionID, req)
	if err != nil {
		httputil.WriteError(w, err, "Failed to create lesson")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, lesson)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
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

	var req models.CreateQuizRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}

	quiz, err := h.service.CreateQuiz(r.Context(), userID, middleware.Role(r.Context()), courseID, req)
	if err != nil {
		httputil.WriteError(w, err, "Failed to create quiz")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, quiz)
}

// ── Enrollment ──────────────────────────────────────────

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
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

	enrollment, err := h.service.Enroll(r.Context(), userID, courseID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to enroll")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, enrollment)
}
