package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"captia/internal/api/v1/router"
	"captia/internal/config"
	"captia/internal/logger"
	"captia/internal/pubsub"
	"captia/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// @title Captia API
// @version 1.0
// @description Quota-gated AI meeting summaries for CRM users
// @host localhost:8080
// @BasePath /v1
// @Schemes http https

func main() {
	bootLogger := logger.New(os.Getenv("ENV"), "info")

	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		bootLogger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal().Msgf("Error loading config: %v", err)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)
	ctx := context.Background()

	// 2. Resolve sm:// settings from Secret Manager
	if cfg.HasSecretRefs() {
		secrets, err := service.NewSecretManagerService(ctx)
		if err != nil {
			log.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
		}
		if err := cfg.ResolveSecrets(ctx, secrets); err != nil {
			log.Fatal().Msgf("Failed to resolve secrets: %v", err)
		}
		_ = secrets.Close()
	}

	// 3. Build process-wide clients
	quotaRepo, closeStore, err := router.OpenQuotaStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Msgf("Failed to open quota store: %v", err)
	}
	defer closeStore()

	deps := router.Deps{QuotaRepo: quotaRepo, Registry: newRegistry()}
	if cfg.PubSubUsageTopic != "" {
		publisher, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			log.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		}
		defer func() { _ = publisher.Close() }()
		deps.Publisher = publisher
	}

	// 4. Create HTTP server. Summaries wait on the AI provider and the CRM, so the write
	// timeout has to cover both.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(cfg, deps, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.AIRequestTimeout() + cfg.CRMRequestTimeout() + 2*cfg.StoreTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	// 5. Start server in a goroutine
	go func() {
		log.Info().Msgf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Msgf("Listen: %s\n", err)
		}
	}()

	// 6. Graceful shutdown
	waitForShutdown(srv, log)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func waitForShutdown(srv *http.Server, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received, exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server shut down gracefully")
}
