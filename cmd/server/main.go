package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"studyplans/internal/config"
	"studyplans/internal/database"
	"studyplans/internal/handlers"
	"studyplans/internal/logger"
	"studyplans/internal/repository"
	"studyplans/internal/security"
	"studyplans/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("migrations completed")

	templateRepo := repository.NewTemplateRepository(db)
	planRepo := repository.NewPlanRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	sprintDays := cfg.DefaultSprintDays
	if sprintDays <= 0 {
		sprintDays = service.DefaultSprintDays
	}

	svc := handlers.Services{
		Templates:     service.NewTemplateService(db, templateRepo, planRepo, log, sprintDays),
		Ordering:      service.NewOrderingService(db, log),
		Instantiation: service.NewInstantiationService(db, templateRepo, planRepo, assignmentRepo, log, sprintDays),
		Progress:      service.NewProgressService(db, planRepo, assignmentRepo, log),
		Reports:       service.NewReportService(planRepo, assignmentRepo),
	}

	var verifier *security.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = security.NewTokenVerifier(cfg.JWTSecret)
	} else {
		log.Warn("JWT_SECRET not set, bearer authentication disabled")
	}

	var limiter *security.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = security.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	middleware := handlers.NewMiddleware(verifier, limiter, log)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(svc, db, middleware, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
