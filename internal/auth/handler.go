package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorhub/backend/internal/database"
	"github.com/tutorhub/backend/internal/httputil"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/middleware"
	"github.com/tutorhub/backend/internal/models"
)

const tokenTTL = 72 * time.Hour

type Handler struct {
	db     *sqlx.DB
	secret []byte
	log    *logger.Logger
}

func NewHandler(db *sqlx.DB, secret []byte, log *logger.Logger) *Handler {
	return &Handler{db: db, secret: secret, log: log.With("component", "auth")}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = models.RoleStudent
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	user, err := CreateUser(r.Context(), h.db, req.Email, req.Name, string(hashedPassword), req.Role, time.Now())
	if err != nil {
		if database.IsUniqueViolation(err) {
			httputil.WriteJSON(w, http.StatusConflict, models.ErrorResponse{Error: "An account with this email already exists"})
			return
		}
		h.log.Error("create user failed", "email", req.Email, "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create account"})
		return
	}

	token, err := GenerateToken(h.secret, user.ID, user.Role, time.Now())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	h.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	httputil.WriteJSON(w, http.StatusCreated, models.AuthResponse{Token: token, User: *user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Email and password are required"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	var user models.User
	err := h.db.GetContext(r.Context(), &user, h.db.Rebind(
		`SELECT id, email, name, role, password, created_at, updated_at FROM users WHERE email = ?`),
		req.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}

	token, err := GenerateToken(h.secret, user.ID, user.Role, time.Now())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var user models.User
	err := h.db.GetContext(r.Context(), &user, h.db.Rebind(
		`SELECT id, email, name, role, created_at, updated_at FROM users WHERE id = ?`),
		userID,
	)
	if err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// CreateUser inserts a user with an already hashed password.
func CreateUser(ctx context.Context, q sqlx.ExtContext, email, name, passwordHash, role string, now time.Time) (*models.User, error) {
	user := models.User{Email: email, Name: name, Role: role, CreatedAt: now, UpdatedAt: now}
	err := sqlx.GetContext(ctx, q, &user.ID, q.Rebind(
		`INSERT INTO users (email, name, password, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		email, name, passwordHash, role, now, now,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func GenerateToken(secret []byte, userID int64, role string, now time.Time) (string, error) {
	claims := middleware.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
