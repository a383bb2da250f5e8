package gamification

import (
	"net/http"

	"github.com/tutorhub/backend/internal/httputil"
	"github.com/tutorhub/backend/internal/middleware"
	"github.com/tutorhub/backend/internal/models"
)

// Handler serves the read-only gamification views. Writes go through the
// engine.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ── Progress ────────────────────────────────────────────

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	snap, err := h.service.Snapshot(r.Context(), h.service.store.db, userID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to get progress")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) GetBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	badges, err := h.service.store.ListUserBadges(r.Context(), h.service.store.db, userID)
	if err != nil {
		httputil.WriteError(w, err, "Failed to get badges")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"badges": badges})
}

// ── XP History ──────────────────────────────────────────

func (h *Handler) GetXPHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	limit := httputil.QueryLimit(r, 50, 200)
	activities, err := h.service.store.ListXPActivities(r.Context(), h.service.store.db, userID, limit)
	if err != nil {
		httputil.WriteError(w, err, "Failed to get XP history")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}
