package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tutorhub/backend/internal/config"
	"github.com/tutorhub/backend/internal/database"
	"github.com/tutorhub/backend/internal/logger"
	"github.com/tutorhub/backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := database.Migrate(cfg.DB); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}
	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatal("failed to connect to database", "driver", cfg.DB.Driver, "error", err)
	}
	defer db.Close()

	app, err := server.New(ctx, cfg, db, log, nil)
	if err != nil {
		log.Fatal("failed to initialize app", "error", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.Port, "driver", cfg.DB.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
	log.Info("server stopped")
}
