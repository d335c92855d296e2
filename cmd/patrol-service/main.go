package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"patrol-service/internal/auth"
	"patrol-service/internal/config"
	"patrol-service/internal/db"
	httphandler "patrol-service/internal/http"
	"patrol-service/internal/http/middleware"
	"patrol-service/internal/logger"
	"patrol-service/internal/lookup"
	"patrol-service/internal/repository"
	"patrol-service/internal/service"
	"patrol-service/internal/settlement"
	"patrol-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	var (
		database *gorm.DB
		backend  lookup.Backend
		opts     = service.Options{RecordSettlementsInHistory: cfg.RecordSettlementsInHistory}
	)

	switch cfg.Lookup.Backend {
	case config.LookupBackendPostgres:
		database, err = db.New(cfg, appLogger)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to connect database")
		}
		patrolRepo := repository.NewPatrolRepository(database)
		backend = patrolRepo
		opts.Store = patrolRepo
		opts.History = patrolRepo
	default:
		memory := lookup.NewDemoBackend()
		backend = memory
		opts.Store = service.NewMemoryStore()
		opts.History = memory
		appLogger.Warn().Msg("using in-memory demo registry, nothing will be persisted")
	}

	// Optional, tickets are simply not archived without it
	r2Client, err := storage.NewR2ClientFromEnv()
	if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		appLogger.Fatal().Err(err).Msg("failed to initialize R2 client")
	}
	if err != nil {
		appLogger.Warn().Msg("R2 storage not configured, ticket archiving disabled")
	} else {
		opts.Archiver = r2Client
	}

	engine := settlement.NewEngine(settlement.Options{
		SuccessProbability: &cfg.Payment.SuccessProbability,
		PushLatency:        &cfg.Payment.PushLatency,
		Station:            cfg.Payment.NoticeStation,
		Random:             rand.New(rand.NewSource(cfg.Payment.RandomSeed)),
	}, appLogger)

	lookupService := lookup.NewService(backend, cfg.Lookup.Timeout, appLogger)
	patrolService := service.NewPatrolService(lookupService, engine, opts, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(patrolService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, database, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().
		Str("addr", addr).
		Str("lookup_backend", cfg.Lookup.Backend).
		Msg("starting patrol service")

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")

	// Long enough for in-flight digital pushes to resolve
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second+cfg.Payment.PushLatency)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}
