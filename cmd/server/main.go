// Package main provides the course chatbot server entry point.
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

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/gmaidana/cursos-chatbot-go/internal/buildinfo"
	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/chat"
	"github.com/gmaidana/cursos-chatbot-go/internal/config"
	"github.com/gmaidana/cursos-chatbot-go/internal/genai"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/metrics"
	"github.com/gmaidana/cursos-chatbot-go/internal/rag"
	"github.com/gmaidana/cursos-chatbot-go/internal/ratelimit"
	"github.com/gmaidana/cursos-chatbot-go/internal/sentry"
	"github.com/gmaidana/cursos-chatbot-go/internal/session"
	"github.com/gmaidana/cursos-chatbot-go/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger (optionally shipping to Better Stack)
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterstackToken:    cfg.BetterstackToken,
		BetterstackEndpoint: cfg.BetterstackEndpoint,
	})
	log.WithField("version", buildinfo.Version).
		WithField("commit", buildinfo.Commit).
		Info("Starting cursos chatbot server")

	// Initialize Sentry (no-op when DSN is empty)
	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, continuing without it")
	}
	if sentry.IsEnabled() {
		log.Info("Sentry initialized")
		defer sentry.Flush(2 * time.Second)
	}

	// Open the SQLite turn log
	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Error("Failed to open turn log database")
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", db.Path()).Info("Turn log database connected")

	// Create Prometheus registry with Go and process collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())
	m := metrics.New(registry)
	log.Info("Metrics initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the course catalog (R2 object or local file)
	cat := catalog.LoadFromConfig(ctx, cfg, log, m)
	for state, n := range cat.CountByState() {
		m.SetCatalogSize(string(state), n)
	}
	log.WithField("courses", cat.Len()).Info("Catalog loaded")

	// Build the BM25 keyword index over the catalog
	index := rag.NewIndex(log)
	if err := index.Initialize(cat); err != nil {
		log.WithError(err).Warn("BM25 index unavailable, generating without keyword hints")
		index = nil
	}

	// Build the generation chain. An empty chain is valid: the service
	// degrades to template-only answers.
	chain, err := genai.NewChain(ctx, cfg, log, m)
	if err != nil {
		log.WithError(err).Error("Failed to build generation chain")
		os.Exit(1)
	}
	defer func() { _ = chain.Close() }()
	if !chain.IsEnabled() {
		log.Warn("No LLM provider configured, generation fallback disabled")
	}

	// Session windows and per-session rate limiting
	sessions := session.NewStore(cfg.Chat.MaxHistoryEntries)
	limiter := ratelimit.NewPerKeyLimiter(ratelimit.PerKeyLimiterConfig{
		MaxTokens:     cfg.Chat.SessionRateLimitBurst,
		RefillRate:    cfg.Chat.SessionRateLimitRefill,
		CleanupPeriod: config.RateLimitCleanupPeriod,
	})
	limiter.OnDrop(func() { m.RecordRateLimitDrop("session") })
	defer limiter.Stop()

	// Wire the chat pipeline
	service := chat.NewService(cat, chain, index, sessions, db, log, m, chat.ServiceConfig{
		GenerationTimeout: cfg.GenerationTimeout,
		IncludeClosed:     cfg.LLMContextIncludeClosed,
		TopMatches:        cfg.Chat.TopMatches,
		MaxMessageLength:  cfg.Chat.MaxMessageLength,
		MaxListingEntries: cfg.Chat.MaxListingEntries,
	})
	handler := chat.NewHandler(service, limiter, log, m)

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	setupRoutes(router, handler, db, cat, index, registry, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.HTTPRead,
		WriteTimeout: config.HTTPWrite,
		IdleTimeout:  config.HTTPIdle,
	}

	// Background jobs, each isolated so a panic never takes the server down
	var jobs errgroup.Group
	startJob := func(name string, job func(context.Context)) {
		jobs.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("job", name).WithField("panic", r).Error("Background job panicked")
				}
			}()
			job(ctx)
			return nil
		})
	}
	startJob("turnlog-prune", func(ctx context.Context) {
		pruneTurnLog(ctx, db, cfg.TurnLogRetention, log)
	})
	startJob("session-prune", func(ctx context.Context) {
		pruneSessions(ctx, sessions, log)
	})
	startJob("session-gauge", func(ctx context.Context) {
		refreshSessionGauge(ctx, service, m)
	})

	// Start HTTP server
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	case <-ctx.Done():
	}

	// Stop background jobs
	cancel()

	// Drain in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	// Wait for background jobs with a bounded grace period
	done := make(chan struct{})
	go func() {
		_ = jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("Background jobs did not stop in time")
	}

	log.Info("Server stopped")
}
