package leaderboard

import (
	"net/http"

	"github.com/tutorhub/backend/internal/httputil"
	"github.com/tutorhub/backend/internal/middleware"
	"github.com/tutorhub/backend/internal/models"
)

type Handler struct {
	board Board
}

func NewHandler(board Board) *Handler {
	return &Handler{board: board}
}

func (h *Handler) Top(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	entries, err := h.board.Top(r.Context(), httputil.QueryLimit(r, 20, 100))
	if err != nil {
		httputil.WriteError(w, err, "Failed to get leaderboard")
		return
	}
	for i := range entries {
		entries[i].IsCurrentUser = entries[i].UserID == userID
	}

	httputil.WriteJSON(w, http.StatusOK, models.LeaderboardResponse{Entries: entries})
}
