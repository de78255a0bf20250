// Package main is the entry point for the Visitbook server.
// Its sole responsibility is wiring dependencies together and starting the
// HTTP server and the archive scheduler. No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/visitbook/internal/auth"
	"github.com/pkordes/visitbook/internal/config"
	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/handler"
	"github.com/pkordes/visitbook/internal/jobs"
	"github.com/pkordes/visitbook/internal/middleware"
	"github.com/pkordes/visitbook/internal/repo"
	"github.com/pkordes/visitbook/internal/service"
	"github.com/pkordes/visitbook/migrations"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		// goose drives database/sql; OpenDBFromPool shares the pgx pool.
		sqlDB := stdlib.OpenDBFromPool(pool)
		n, err := migrations.Up(ctx, sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "count", n)
	}

	// --- Services ---------------------------------------------------------
	activityRepo := repo.NewActivityRepo(pool)
	uow := repo.NewUnitOfWork(pool)
	tokens := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL)

	visits := service.NewVisitService(uow, cfg.VisitPolicy, logger)
	reports := service.NewReportService(uow, cfg.VisitPolicy)
	archive := service.NewArchiveService(uow, cfg.VisitPolicy, logger)
	authSvc := service.NewAuthService(repo.NewUserRepo(pool), activityRepo, auth.NewBcryptHasher(), tokens, logger)

	if cfg.BootstrapAdminUsername != "" && cfg.BootstrapAdminPassword != "" {
		err := authSvc.Bootstrap(ctx, []service.AccountInput{{
			Username:    cfg.BootstrapAdminUsername,
			Password:    cfg.BootstrapAdminPassword,
			Role:        domain.RoleAdmin,
			DisplayName: "Administrator",
		}})
		if err != nil {
			return err
		}
	}

	srv, err := handler.NewServer(handler.Deps{
		Visits:     visits,
		Reports:    reports,
		Archive:    archive,
		Export:     service.NewExportService(reports),
		Feedback:   service.NewFeedbackService(repo.NewFeedbackRepo(pool)),
		Activity:   service.NewActivityService(activityRepo),
		Auth:       authSvc,
		Today:      cfg.Today,
		SessionTTL: cfg.SessionTTL,
		Log:        logger,
	})
	if err != nil {
		return err
	}

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → CORS → SessionLoader → Logger →
	// Recoverer → MaxBodySize. The session loader runs before the logger so
	// each request line carries the acting username.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewSessionLoader(tokens))
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	srv.Mount(r)

	// --- HTTP Server ------------------------------------------------------
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", httpSrv.Addr, "visit_policy", cfg.VisitPolicy)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.ArchiveSchedule != "" {
		sched, err := jobs.NewArchiveScheduler(cfg.ArchiveSchedule, cfg.Location, archive, cfg.Today, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
