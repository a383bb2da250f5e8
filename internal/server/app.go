package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/catalog"
	"github.com/tutorhub/backend/internal/config"
	"github.com/tutorhub/backend/internal/engine"
	"github.com/tutorhub/backend/internal/gamification"
	"github.com/tutorhub/backend/internal/leaderboard"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/metrics"
	"github.com/tutorhub/backend/internal/progress"
	"github.com/tutorhub/backend/internal/quiz"
)

// App is the wired service graph behind the HTTP routes.
type App struct {
	Engine  *engine.Engine
	Metrics *metrics.Metrics
	Handler http.Handler

	closers []func() error
}

// New wires stores, services and handlers over an already migrated db.
// now is injectable for tests; nil means time.Now.
func New(ctx context.Context, cfg *config.Config, db *sqlx.DB, log *logger.Logger, now func() time.Time) (*App, error) {
	if now == nil {
		now = time.Now
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	rewards := gamification.RewardsFromConfig(cfg.XP)

	gam := gamification.NewService(gamification.NewStore(db), log, now)
	if err := gam.SeedBadges(ctx); err != nil {
		return nil, fmt.Errorf("seed badges: %w", err)
	}
	tracker := progress.NewTracker(progress.NewStore(db), rewards, cfg.SectionUnlockThreshold, log)
	quizzes := quiz.NewService(quiz.NewStore(db), rewards, log)
	cat := catalog.NewService(catalog.NewStore(db), quizzes, log, now)
	m := metrics.New()

	app := &App{Metrics: m}

	sqlBoard := leaderboard.NewSQLBoard(db)
	var board leaderboard.Board = sqlBoard
	if cfg.RedisAddr != "" {
		rb, err := leaderboard.NewRedisBoard(ctx, cfg.RedisAddr, sqlBoard, log)
		if err != nil {
			log.Warn("redis leaderboard unavailable, using sql", "addr", cfg.RedisAddr, "error", err)
		} else {
			if err := rb.Rebuild(ctx); err != nil {
				log.Warn("leaderboard rebuild failed", "error", err)
			}
			board = rb
			app.closers = append(app.closers, rb.Close)
		}
	}

	app.Engine = engine.New(db, gam, tracker, quizzes, cat.Store(), log, engine.Options{
		Rewards:  rewards,
		Location: loc,
		Now:      now,
		Board:    board,
		Metrics:  m,
	})

	app.Handler = NewRouter(Handlers{
		Auth:         auth.NewHandler(db, []byte(cfg.JWTSecret), log),
		Gamification: gamification.NewHandler(gam),
		Engine:       engine.NewHandler(app.Engine),
		Catalog:      catalog.NewHandler(cat),
		Leaderboard:  leaderboard.NewHandler(board),
	}, Options{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        m,
		Log:            log,
	})

	return app, nil
}

// Close releases connections the app opened itself. The db belongs to the
// caller.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
