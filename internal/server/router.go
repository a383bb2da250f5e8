// Package server assembles the HTTP routes and middleware chain.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/catalog"
	"github.com/tutorhub/backend/internal/engine"
	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/leaderboard"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/metrics"
	"github.com/tutorhub/backend/internal/middleware"
	"github.com/tutorhub/backend/internal/models"
)

type Handlers struct {
	Auth         *auth.Handler
	Gamification *gamification.Handler
	Engine       *engine.Handler
	Catalog      *catalog.Handler
	Leaderboard  *leaderboard.Handler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Log            *logger.Logger
}

func NewRouter(h Handlers, opts Options) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog(opts.Log), middleware.Recover(opts.Log))

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(opts.JWTSecret))
	protected.HandleFunc("/auth/me", h.Auth.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/me/progress", h.Gamification.GetProgress).Methods("GET")
	protected.HandleFunc("/me/badges", h.Gamification.GetBadges).Methods("GET")
	protected.HandleFunc("/me/xp", h.Gamification.GetXPHistory).Methods("GET")
	protected.HandleFunc("/leaderboard", h.Leaderboard.Top).Methods("GET")

	protected.HandleFunc("/activities", h.Engine.RecordActivity).Methods("POST")
	protected.HandleFunc("/lessons/{id:[0-9]+}/complete", h.Engine.CompleteLesson).Methods("POST")

	protected.HandleFunc("/courses/{id:[0-9]+}/enroll", h.Catalog.Enroll).Methods("POST")
	protected.HandleFunc("/courses/{id:[0-9]+}/progress", h.Engine.CourseProgress).Methods("GET")
	protected.HandleFunc("/courses/{id:[0-9]+}/sections", h.Engine.Sections).Methods("GET")
	protected.HandleFunc("/courses/{id:[0-9]+}/reviews", h.Engine.SubmitReview).Methods("POST")

	protected.HandleFunc("/quizzes/{id:[0-9]+}", h.Engine.GetQuiz).Methods("GET")
	protected.HandleFunc("/quizzes/{id:[0-9]+}/attempts", h.Engine.SubmitAttempt).Methods("POST")
	protected.HandleFunc("/quizzes/{id:[0-9]+}/attempts", h.Engine.ListAttempts).Methods("GET")

	// Authoring routes
	authoring := protected.PathPrefix("").Subrouter()
	authoring.Use(middleware.RequireRole(models.RoleTutor, models.RoleAdmin))
	authoring.HandleFunc("/courses", h.Catalog.CreateCourse).Methods("POST")
	authoring.HandleFunc("/courses/{id:[0-9]+}/sections", h.Catalog.CreateSection).Methods("POST")
	authoring.HandleFunc("/sections/{id:[0-9]+}/lessons", h.Catalog.CreateLesson).Methods("POST")
	authoring.HandleFunc("/courses/{id:[0-9]+}/quizzes", h.Catalog.CreateQuiz).Methods("POST")
	authoring.HandleFunc("/admin/xp", h.Engine.AdminAward).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
